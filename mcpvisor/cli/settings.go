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

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/mcpvisor/runner"
	"github.com/gdamore/mcpvisor/supervisor"
)

// Environment variables consulted by DefaultSettings.  Flags win over them.
const (
	EnvRoot       = "MCPVISOR_ROOT"
	EnvRegistry   = "MCPVISOR_REGISTRY"
	EnvServersDir = "MCPVISOR_SERVERS_DIR"
	EnvOutputDir  = "MCPVISOR_OUTPUT_DIR"
	EnvSupervisor = "MCPVISOR_SUPERVISOR"
	EnvTimeout    = "MCPVISOR_TIMEOUT"
)

const (
	DefaultRegistry   = "mcp-servers.yaml"
	DefaultServersDir = "servers"
	DefaultEcosystem  = "ecosystem.json"
	DefaultAddr       = "127.0.0.1:8321"
)

// Settings are the knobs of one invocation.  Registry, ServersDir and
// Ecosystem are relative to Root unless absolute; OutputDir is relative to
// the working directory, and empty means the working directory itself.
type Settings struct {
	Root       string
	Registry   string
	ServersDir string
	Ecosystem  string
	OutputDir  string
	Supervisor string
	Timeout    time.Duration
	Addr       string
	Verbose    bool
}

func getEnv(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(getenv func(string) string, key string, def time.Duration) time.Duration {
	if v := getenv(key); v != "" {
		if d, e := time.ParseDuration(v); e == nil {
			return d
		}
	}
	return def
}

// DefaultSettings returns the built in defaults, overridden by the
// environment of the current process.
func DefaultSettings() Settings {
	return settingsFrom(os.Getenv)
}

func settingsFrom(getenv func(string) string) Settings {
	return Settings{
		Root:       getEnv(getenv, EnvRoot, "."),
		Registry:   getEnv(getenv, EnvRegistry, DefaultRegistry),
		ServersDir: getEnv(getenv, EnvServersDir, DefaultServersDir),
		Ecosystem:  DefaultEcosystem,
		OutputDir:  getEnv(getenv, EnvOutputDir, ""),
		Supervisor: getEnv(getenv, EnvSupervisor, supervisor.DefaultBinary),
		Timeout:    getEnvDuration(getenv, EnvTimeout, runner.DefaultTimeout),
		Addr:       DefaultAddr,
	}
}

func under(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// Resolve returns a copy with every path made absolute.
func (s Settings) Resolve() (Settings, error) {
	root, e := filepath.Abs(s.Root)
	if e != nil {
		return s, fmt.Errorf("bad root %q: %w", s.Root, e)
	}
	s.Root = root
	s.Registry = under(root, s.Registry)
	s.ServersDir = under(root, s.ServersDir)
	s.Ecosystem = under(root, s.Ecosystem)
	out := s.OutputDir
	if out == "" {
		out = "."
	}
	if s.OutputDir, e = filepath.Abs(out); e != nil {
		return s, fmt.Errorf("bad output directory %q: %w", out, e)
	}
	if s.Supervisor == "" {
		s.Supervisor = supervisor.DefaultBinary
	}
	if s.Timeout <= 0 {
		s.Timeout = runner.DefaultTimeout
	}
	return s, nil
}
