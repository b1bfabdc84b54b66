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

// Package installer installs the dependencies of a server checkout using
// the package manager of its runtime.
package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/runner"
)

// Installer runs package managers.
type Installer struct {
	Runner runner.Runner
	Logger *log.Logger
}

// New returns an Installer.
func New(r runner.Runner) *Installer {
	return &Installer{Runner: r}
}

func (in *Installer) logf(format string, v ...interface{}) {
	if in.Logger != nil {
		in.Logger.Printf(format, v...)
	}
}

var hints = map[string]string{
	"npm": "install Node.js from https://nodejs.org",
	"pip": "install Python 3 from https://www.python.org",
}

// need returns the first of the named tools that is installed.
func (in *Installer) need(names ...string) (string, error) {
	for _, n := range names {
		if _, e := in.Runner.LookPath(n); e == nil {
			return n, nil
		}
	}
	return "", &mcpvisor.MissingDependencyError{
		Tool: names[len(names)-1],
		Hint: hints[names[len(names)-1]],
	}
}

func (in *Installer) run(ctx context.Context, dir, name string, args ...string) error {
	return in.Runner.Run(ctx, runner.Cmd{Name: name, Args: args, Dir: dir})
}

// hasBuildScript reports whether package.json defines a build script.
func hasBuildScript(dir string) (bool, error) {
	b, e := os.ReadFile(filepath.Join(dir, mcpvisor.NodeManifest))
	if e != nil {
		return false, e
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if e := json.Unmarshal(b, &pkg); e != nil {
		return false, fmt.Errorf("%s: %w", mcpvisor.NodeManifest, e)
	}
	_, ok := pkg.Scripts["build"]
	return ok, nil
}

func (in *Installer) installNode(ctx context.Context, dir string) error {
	npm, e := in.need("npm")
	if e != nil {
		return e
	}
	build, e := hasBuildScript(dir)
	if e != nil {
		return e
	}
	if e := in.run(ctx, dir, npm, "install"); e != nil {
		return e
	}
	if build {
		return in.run(ctx, dir, npm, "run", "build")
	}
	return nil
}

func (in *Installer) installPython(ctx context.Context, dir string) error {
	pyproject := fileExists(filepath.Join(dir, mcpvisor.PythonProjectConfig))
	if pyproject {
		if _, e := in.Runner.LookPath("uv"); e == nil {
			return in.run(ctx, dir, "uv", "sync")
		}
	}
	pip, e := in.need("pip3", "pip")
	if e != nil {
		return e
	}
	if fileExists(filepath.Join(dir, mcpvisor.PythonRequirements)) {
		return in.run(ctx, dir, pip, "install", "-r",
			mcpvisor.PythonRequirements)
	}
	return in.run(ctx, dir, pip, "install", ".")
}

func fileExists(path string) bool {
	fi, e := os.Stat(path)
	return e == nil && fi.Mode().IsRegular()
}

// Install installs the dependencies of the checkout in dir, returning the
// runtime that was detected.  Checkouts of unknown runtime are left alone.
// Installation is not rolled back on failure; running it again is safe.
func (in *Installer) Install(ctx context.Context, dir string) (mcpvisor.RuntimeKind, error) {
	kind := mcpvisor.Detect(dir)
	switch kind {
	case mcpvisor.RuntimeNode:
		in.logf("Installing node dependencies in %s", dir)
		return kind, in.installNode(ctx, dir)
	case mcpvisor.RuntimePython:
		in.logf("Installing python dependencies in %s", dir)
		return kind, in.installPython(ctx, dir)
	}
	in.logf("No known runtime in %s, nothing to install", dir)
	return kind, nil
}
