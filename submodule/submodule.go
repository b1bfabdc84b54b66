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

// Package submodule manages server checkouts as git submodules.
package submodule

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/runner"
)

const gitBinary = "git"

// Submodules runs git submodule commands in a repository whose servers
// live in ServersDir, one submodule per server.
type Submodules struct {
	Runner     runner.Runner
	RepoRoot   string
	ServersDir string
	Logger     *log.Logger
}

// New returns Submodules for the repository at root.
func New(r runner.Runner, root, serversDir string) *Submodules {
	return &Submodules{Runner: r, RepoRoot: root, ServersDir: serversDir}
}

func (g *Submodules) logf(format string, v ...interface{}) {
	if g.Logger != nil {
		g.Logger.Printf(format, v...)
	}
}

// Check makes sure git is installed.
func (g *Submodules) Check() error {
	if _, e := g.Runner.LookPath(gitBinary); e != nil {
		return &mcpvisor.MissingDependencyError{
			Tool: gitBinary,
			Hint: "install git from your package manager or https://git-scm.com",
		}
	}
	return nil
}

// Dir returns the checkout directory of a server.
func (g *Submodules) Dir(name string) string {
	return filepath.Join(g.ServersDir, name)
}

// path returns the submodule path as git wants it: relative to the
// repository root, with forward slashes.
func (g *Submodules) path(name string) string {
	dir := g.Dir(name)
	if rel, e := filepath.Rel(g.RepoRoot, dir); e == nil &&
		filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return dir
}

// Fetched reports whether the server's checkout is present.
func (g *Submodules) Fetched(name string) bool {
	return mcpvisor.Fetched(g.Dir(name))
}

// Require fails with ErrSubmoduleNotFound unless the server is fetched.
func (g *Submodules) Require(name string) error {
	if !g.Fetched(name) {
		return fmt.Errorf("%w: %s (expected in %s, run init or add first)",
			mcpvisor.ErrSubmoduleNotFound, name, g.Dir(name))
	}
	return nil
}

func (g *Submodules) git(ctx context.Context, args ...string) error {
	if e := g.Check(); e != nil {
		return e
	}
	return g.Runner.Run(ctx, runner.Cmd{
		Name: gitBinary,
		Args: args,
		Dir:  g.RepoRoot,
	})
}

// Init checks out every registered submodule, recursively.
func (g *Submodules) Init(ctx context.Context) error {
	g.logf("Fetching server submodules")
	return g.git(ctx, "submodule", "update", "--init", "--recursive")
}

// Add registers a new server submodule cloned from url.
func (g *Submodules) Add(ctx context.Context, name, url string) error {
	if e := mcpvisor.ValidateName(name); e != nil {
		return e
	}
	if url == "" {
		return fmt.Errorf("server %q: repository url is required", name)
	}
	if g.Fetched(name) {
		return fmt.Errorf("server %q: %s already exists", name, g.Dir(name))
	}
	g.logf("Adding %s from %s", name, url)
	return g.git(ctx, "submodule", "add", url, g.path(name))
}

// Update moves submodules to the latest commit of their remote branch.
// With an empty name, every submodule is updated.
func (g *Submodules) Update(ctx context.Context, name string) error {
	args := []string{"submodule", "update", "--remote", "--init"}
	if name != "" {
		if e := g.Require(name); e != nil {
			return e
		}
		args = append(args, "--", g.path(name))
		g.logf("Updating %s", name)
	} else {
		g.logf("Updating all servers")
	}
	return g.git(ctx, args...)
}
