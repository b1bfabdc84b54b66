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
	"os"
	"path/filepath"
)

// RuntimeKind is the ecosystem a server checkout belongs to, which decides
// how it gets installed.
type RuntimeKind int

const (
	RuntimeUnknown RuntimeKind = iota
	RuntimeNode                // has a package.json
	RuntimePython              // has requirements.txt or pyproject.toml
)

// Marker files, checked in this order.
const (
	NodeManifest        = "package.json"
	PythonRequirements  = "requirements.txt"
	PythonProjectConfig = "pyproject.toml"
)

func (k RuntimeKind) String() string {
	switch k {
	case RuntimeNode:
		return "node"
	case RuntimePython:
		return "python"
	}
	return "unknown"
}

func isFile(dir, name string) bool {
	fi, e := os.Stat(filepath.Join(dir, name))
	return e == nil && fi.Mode().IsRegular()
}

// Fetched reports whether dir holds a server checkout.  The directory of a
// submodule that was never initialized exists but is empty, so that does
// not count.
func Fetched(dir string) bool {
	ents, e := os.ReadDir(dir)
	return e == nil && len(ents) != 0
}

// Detect classifies the directory by its marker files.  A missing or
// unreadable directory is simply RuntimeUnknown.  Detect only inspects
// the file system.
func Detect(dir string) RuntimeKind {
	switch {
	case isFile(dir, NodeManifest):
		return RuntimeNode
	case isFile(dir, PythonRequirements), isFile(dir, PythonProjectConfig):
		return RuntimePython
	}
	return RuntimeUnknown
}
