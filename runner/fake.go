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

package runner

import (
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Fake is a Runner that records commands instead of running them.  It is
// meant for tests.  Tools listed in Missing are not found by LookPath;
// Outputs and Errors are keyed by the full command line (Cmd.String).
type Fake struct {
	Missing map[string]bool
	Outputs map[string][]byte
	Errors  map[string]error

	calls []Cmd
	lock  sync.Mutex
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Missing: make(map[string]bool),
		Outputs: make(map[string][]byte),
		Errors:  make(map[string]error),
	}
}

func (f *Fake) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

func (f *Fake) record(c Cmd) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, c)
	return f.Errors[c.String()]
}

func (f *Fake) Run(ctx context.Context, c Cmd) error {
	return f.record(c)
}

func (f *Fake) Output(ctx context.Context, c Cmd) ([]byte, error) {
	if e := f.record(c); e != nil {
		return nil, e
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.Outputs[c.String()], nil
}

// Calls returns the commands run so far.
func (f *Fake) Calls() []Cmd {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Cmd{}, f.calls...)
}

// Lines returns the command lines run so far.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	rv := make([]string, 0, len(calls))
	for _, c := range calls {
		rv = append(rv, c.String())
	}
	return rv
}

// Ran reports whether a command line starting with prefix was run.
func (f *Fake) Ran(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
