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

// Package supervisor drives the external process supervisor (pm2, or any
// tool with the same command line contract).  mcpvisor never supervises
// processes itself: it describes the servers in an ecosystem file, and
// asks the supervisor to act on that file.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/runner"
)

// DefaultBinary is the supervisor used unless configured otherwise.
const DefaultBinary = "pm2"

// App is one entry of the ecosystem file.  Interpreter is always "none",
// so that the supervisor executes Script directly rather than guessing a
// runtime from its extension.
type App struct {
	Name        string            `json:"name"`
	Script      string            `json:"script"`
	Args        []string          `json:"args,omitempty"`
	Cwd         string            `json:"cwd,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Interpreter string            `json:"interpreter"`
}

// Ecosystem is the supervisor configuration file.
type Ecosystem struct {
	Apps []App `json:"apps"`
}

// NewEcosystem describes every server in the registry, including internal
// ones, in registry order.
func NewEcosystem(reg *mcpvisor.Registry, serversRoot string) *Ecosystem {
	eco := &Ecosystem{Apps: []App{}}
	for _, d := range reg.Descriptors() {
		inv := d.Invocation(serversRoot)
		app := App{
			Name:        d.Name,
			Script:      inv.Command,
			Args:        inv.Args,
			Cwd:         inv.Dir,
			Interpreter: "none",
		}
		if len(inv.Env) != 0 {
			app.Env = inv.Env
		}
		eco.Apps = append(eco.Apps, app)
	}
	return eco
}

// Process is the supervisor's view of one running (or stopped) server.
type Process struct {
	Name     string
	PID      int
	Status   string
	Started  time.Time
	Restarts int
}

type jlistEntry struct {
	Name string `json:"name"`
	PID  int    `json:"pid"`
	Env  struct {
		Status   string `json:"status"`
		Uptime   int64  `json:"pm_uptime"`
		Restarts int    `json:"restart_time"`
	} `json:"pm2_env"`
}

// listStart finds the line where the JSON process list begins.  Banner
// lines such as "[PM2] Spawning PM2 daemon" also start with a bracket, so a
// line only qualifies if it opens an array of objects, is a bare bracket
// (or empty array), or everything from it on is valid JSON.
func listStart(b []byte) int {
	for i := 0; i < len(b); {
		end := bytes.IndexByte(b[i:], '\n')
		if end < 0 {
			end = len(b)
		} else {
			end += i
		}
		line := bytes.TrimSpace(b[i:end])
		switch {
		case bytes.HasPrefix(line, []byte("[{")),
			bytes.Equal(line, []byte("[")),
			bytes.Equal(line, []byte("[]")),
			len(line) != 0 && json.Valid(b[i:]):
			return i
		}
		i = end + 1
	}
	return -1
}

// ParseProcesses decodes the supervisor's JSON process list.  Anything
// printed ahead of the list (pm2 emits banners when it spawns its daemon)
// is skipped.  The result is sorted by name.
func ParseProcesses(b []byte) ([]Process, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	i := listStart(b)
	if i < 0 {
		return nil, fmt.Errorf("bad process list: no JSON array in %q",
			firstLine(b))
	}
	b = b[i:]
	var ents []jlistEntry
	if e := json.Unmarshal(b, &ents); e != nil {
		return nil, fmt.Errorf("bad process list: %w", e)
	}
	procs := make([]Process, 0, len(ents))
	for _, ent := range ents {
		p := Process{
			Name:     ent.Name,
			PID:      ent.PID,
			Status:   ent.Env.Status,
			Restarts: ent.Env.Restarts,
		}
		if ent.Env.Uptime > 0 {
			p.Started = time.UnixMilli(ent.Env.Uptime)
		}
		procs = append(procs, p)
	}
	sort.Slice(procs, func(i, j int) bool {
		return procs[i].Name < procs[j].Name
	})
	return procs, nil
}

func firstLine(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return b
}

// Supervisor runs supervisor commands against an ecosystem file.
type Supervisor struct {
	Binary      string
	Ecosystem   string
	ServersRoot string
	Runner      runner.Runner
	Logger      *log.Logger
}

// New returns a Supervisor.  An empty binary selects DefaultBinary.
func New(r runner.Runner, binary, ecosystem, serversRoot string) *Supervisor {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Supervisor{
		Binary:      binary,
		Ecosystem:   ecosystem,
		ServersRoot: serversRoot,
		Runner:      r,
	}
}

func (s *Supervisor) logf(format string, v ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
	}
}

// Check makes sure the supervisor is installed.
func (s *Supervisor) Check() error {
	if _, e := s.Runner.LookPath(s.Binary); e != nil {
		hint := ""
		if s.Binary == DefaultBinary {
			hint = "install it with: npm install -g pm2"
		}
		return &mcpvisor.MissingDependencyError{Tool: s.Binary, Hint: hint}
	}
	return nil
}

// WriteEcosystem regenerates the ecosystem file from the registry.  The
// file is replaced on every call, so it always matches the registry.
func (s *Supervisor) WriteEcosystem(reg *mcpvisor.Registry) error {
	b, e := json.MarshalIndent(NewEcosystem(reg, s.ServersRoot), "", "  ")
	if e != nil {
		return e
	}
	b = append(b, '\n')
	if e := os.WriteFile(s.Ecosystem, b, 0644); e != nil {
		return e
	}
	s.logf("Wrote %s (%d servers)", s.Ecosystem, reg.Len())
	return nil
}

func (s *Supervisor) apply(ctx context.Context, verb string, reg *mcpvisor.Registry, name string) error {
	if e := s.Check(); e != nil {
		return e
	}
	if name != "" {
		if _, e := reg.Lookup(name); e != nil {
			return e
		}
	}
	if e := s.WriteEcosystem(reg); e != nil {
		return e
	}
	args := []string{verb, s.Ecosystem}
	if name != "" {
		args = append(args, "--only", name)
	}
	return s.Runner.Run(ctx, runner.Cmd{Name: s.Binary, Args: args})
}

// Start starts every server, or just the named one.
func (s *Supervisor) Start(ctx context.Context, reg *mcpvisor.Registry, name string) error {
	return s.apply(ctx, "start", reg, name)
}

// Stop stops every server, or just the named one.
func (s *Supervisor) Stop(ctx context.Context, reg *mcpvisor.Registry, name string) error {
	return s.apply(ctx, "stop", reg, name)
}

// Restart restarts every server, or just the named one.
func (s *Supervisor) Restart(ctx context.Context, reg *mcpvisor.Registry, name string) error {
	return s.apply(ctx, "restart", reg, name)
}

// List shows the supervisor's own process table on the terminal.
func (s *Supervisor) List(ctx context.Context) error {
	if e := s.Check(); e != nil {
		return e
	}
	return s.Runner.Run(ctx, runner.Cmd{
		Name:   s.Binary,
		Args:   []string{"list"},
		Attach: true,
	})
}

// Logs shows (and follows) supervisor logs for all servers, or one.
func (s *Supervisor) Logs(ctx context.Context, name string) error {
	if e := s.Check(); e != nil {
		return e
	}
	args := []string{"logs"}
	if name != "" {
		args = append(args, name)
	}
	return s.Runner.Run(ctx, runner.Cmd{
		Name:   s.Binary,
		Args:   args,
		Attach: true,
	})
}

// Processes asks the supervisor for its process list.
func (s *Supervisor) Processes(ctx context.Context) ([]Process, error) {
	if e := s.Check(); e != nil {
		return nil, e
	}
	b, e := s.Runner.Output(ctx, runner.Cmd{
		Name: s.Binary,
		Args: []string{"jlist"},
	})
	if e != nil {
		return nil, e
	}
	return ParseProcesses(b)
}
