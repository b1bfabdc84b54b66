// Copyright 2026 The Mcpvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcpvisor

import (
	"errors"
	"fmt"
)

var (
	ErrConfigLoad        = errors.New("Cannot load server registry")
	ErrDuplicateServer   = errors.New("Duplicate server name")
	ErrUnsupportedClient = errors.New("Unsupported client")
	ErrMissingDependency = errors.New("Required tool not installed")
	ErrSubmoduleNotFound = errors.New("Server not fetched")
	ErrUnknownServer     = errors.New("No such server")
)

// MissingDependencyError reports an external tool that could not be found
// on the search path.  Hint tells the user how to get it.
type MissingDependencyError struct {
	Tool string
	Hint string
}

func (e *MissingDependencyError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s: %s", ErrMissingDependency.Error(), e.Tool)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrMissingDependency.Error(),
		e.Tool, e.Hint)
}

// Is makes errors.Is(err, ErrMissingDependency) work.
func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}
