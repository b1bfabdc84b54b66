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
	"fmt"
	"path/filepath"
	"strings"
)

// LaunchKind determines how a server is launched, and therefore the shape
// of its projected invocation.
type LaunchKind int

const (
	// PackagedCommand servers are run through an installed command,
	// usually a package runner such as npx or uvx.
	PackagedCommand LaunchKind = iota

	// LocalScript servers are run from an entry point inside their
	// checkout under the servers root, using LocalRuntime.
	LocalScript
)

// LocalRuntime is the interpreter used for LocalScript servers.
const LocalRuntime = "node"

func (k LaunchKind) String() string {
	switch k {
	case PackagedCommand:
		return "package"
	case LocalScript:
		return "script"
	}
	return fmt.Sprintf("LaunchKind(%d)", int(k))
}

// Descriptor describes one managed server.  Descriptors are plain values;
// a Registry hands out copies so that callers cannot alter its contents.
type Descriptor struct {
	Name        string
	Description string
	Kind        LaunchKind
	Command     string // PackagedCommand only
	Script      string // LocalScript only, relative to the server directory
	Args        []string
	Dir         string
	Env         map[string]string
	Internal    bool
}

// Invocation is a resolved command line for a Descriptor.
type Invocation struct {
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
}

func (d *Descriptor) clone() Descriptor {
	c := *d
	c.Args = append([]string(nil), d.Args...)
	if d.Env != nil {
		c.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			c.Env[k] = v
		}
	}
	return c
}

// ServerDir returns the checkout directory of the server under root.
func (d *Descriptor) ServerDir(root string) string {
	return filepath.Join(root, d.Name)
}

// Invocation resolves the descriptor against the servers root.  The
// returned Env is never nil.  A LocalScript server runs as LocalRuntime
// with the absolute script path as its first argument; any Args of the
// descriptor follow it, which lets script servers take flags the same way
// packaged ones do.  Dir is the working directory the supervisor
// should use: the Dir override if present, otherwise the server checkout
// for LocalScript servers, otherwise empty.
func (d *Descriptor) Invocation(root string) Invocation {
	inv := Invocation{Env: make(map[string]string, len(d.Env))}
	for k, v := range d.Env {
		inv.Env[k] = v
	}
	sdir := absPath(d.ServerDir(root))
	switch d.Kind {
	case LocalScript:
		inv.Command = LocalRuntime
		inv.Args = make([]string, 0, len(d.Args)+1)
		inv.Args = append(inv.Args,
			filepath.Join(sdir, filepath.FromSlash(d.Script)))
		inv.Args = append(inv.Args, d.Args...)
		inv.Dir = sdir
	default:
		inv.Command = d.Command
		inv.Args = append([]string{}, d.Args...)
	}
	if d.Dir != "" {
		dir := filepath.FromSlash(d.Dir)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(sdir, dir)
		}
		inv.Dir = dir
	}
	return inv
}

func absPath(p string) string {
	if a, e := filepath.Abs(p); e == nil {
		return a
	}
	return filepath.Clean(p)
}

// ValidateName checks that a server name can be used as the name of its
// checkout directory.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("server name is required")
	}
	if name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return fmt.Errorf("server %q: name must be a plain directory name",
			name)
	}
	return nil
}

// validate checks a single descriptor in isolation.
func (d *Descriptor) validate() error {
	if e := ValidateName(d.Name); e != nil {
		return e
	}
	switch d.Kind {
	case PackagedCommand:
		if d.Command == "" {
			return fmt.Errorf("server %q: command is required", d.Name)
		}
		if d.Script != "" {
			return fmt.Errorf("server %q: script not allowed with command",
				d.Name)
		}
	case LocalScript:
		if d.Script == "" {
			return fmt.Errorf("server %q: script is required", d.Name)
		}
		if d.Command != "" {
			return fmt.Errorf("server %q: command not allowed with script",
				d.Name)
		}
		if !filepath.IsLocal(filepath.FromSlash(d.Script)) {
			return fmt.Errorf("server %q: script %q leaves the server directory",
				d.Name, d.Script)
		}
	default:
		return fmt.Errorf("server %q: bad launch kind %v", d.Name, d.Kind)
	}
	for k := range d.Env {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			return fmt.Errorf("server %q: bad environment name %q",
				d.Name, k)
		}
	}
	return nil
}
