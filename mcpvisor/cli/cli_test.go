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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdamore/mcpvisor/runner"
)

const testRegistry = `
servers:
  - name: alpha
    script: dist/index.js
    args: ["--stdio"]
  - name: beta
    script: main.js
  - name: search
    command: npx
    args: ["-y", "@acme/search"]
    env:
      API_KEY: secret
  - name: helper
    command: helperd
    internal: true
`

type fixture struct {
	t        *testing.T
	root     string
	settings *Settings
	fake     *runner.Fake
}

func newFixture(t *testing.T) *fixture {
	root := t.TempDir()
	s := settingsFrom(func(string) string { return "" })
	s.Root = root
	s.OutputDir = filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(s.OutputDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultRegistry),
		[]byte(testRegistry), 0644))
	return &fixture{t: t, root: root, settings: &s, fake: runner.NewFake()}
}

// fetch makes a server checkout appear, as git would.
func (f *fixture) fetch(name string, files ...string) string {
	dir := filepath.Join(f.root, DefaultServersDir, name)
	require.NoError(f.t, os.MkdirAll(dir, 0755))
	for _, file := range files {
		require.NoError(f.t, os.WriteFile(filepath.Join(dir, file),
			[]byte(`{"name":"`+name+`"}`), 0644))
	}
	return dir
}

func (f *fixture) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Dispatch(context.Background(), args, Options{
		Stdout:   &stdout,
		Stderr:   &stderr,
		Settings: f.settings,
		Runner:   f.fake,
	})
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	f := newFixture(t)

	for _, args := range [][]string{
		{},
		{"bogus"},
		{"add", "only-name"},
		{"add", "a", "b", "c"},
		{"generate-config"},
		{"start", "a", "b"},
		{"status", "extra"},
		{"--no-such-flag", "list"},
	} {
		code, _, stderr := f.run(args...)
		assert.Equal(t, ExitUsage, code, "args %q", args)
		assert.Contains(t, stderr, "Usage:", "args %q", args)
	}
	assert.Empty(t, f.fake.Calls())
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	code, stdout, _ := f.run("--help")
	assert.Equal(t, ExitOK, code)
	for _, sub := range []string{"init", "add", "update", "start", "stop",
		"restart", "list", "logs", "status", "info", "generate-config", "serve"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestGenerateConfig(t *testing.T) {
	f := newFixture(t)

	code, stdout, _ := f.run("generate-config", "claude")
	require.Equal(t, ExitOK, code)
	path := filepath.Join(f.settings.OutputDir, "claude_desktop_config.json")
	assert.Contains(t, stdout, path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(b, []byte("}\n")))

	var doc struct {
		Servers map[string]struct {
			Command string            `json:"command"`
			Args    []string          `json:"args"`
			Env     map[string]string `json:"env"`
		} `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Len(t, doc.Servers, 3)
	assert.NotContains(t, doc.Servers, "helper")

	alpha := doc.Servers["alpha"]
	assert.Equal(t, "node", alpha.Command)
	assert.Equal(t, []string{
		filepath.Join(f.root, DefaultServersDir, "alpha", "dist", "index.js"),
		"--stdio",
	}, alpha.Args)
	assert.Equal(t, map[string]string{}, alpha.Env)
	assert.Equal(t, map[string]string{"API_KEY": "secret"}, doc.Servers["search"].Env)

	// same registry, same bytes
	code, _, _ = f.run("generate-config", "claude")
	require.Equal(t, ExitOK, code)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	code, _, _ = f.run("generate-config", "vscode")
	require.Equal(t, ExitOK, code)
	b, err = os.ReadFile(filepath.Join(f.settings.OutputDir, "vscode_settings.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mcp.servers"`)
	assert.NotContains(t, string(b), `"env"`)

	assert.Empty(t, f.fake.Calls())
}

func TestGenerateConfigBadTarget(t *testing.T) {
	f := newFixture(t)

	code, _, stderr := f.run("generate-config", "emacs")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Unsupported client")
	assert.Contains(t, stderr, "claude, vscode, cursor")

	ents, err := os.ReadDir(f.settings.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestBadRegistry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, DefaultRegistry),
		[]byte("servers:\n  - name: a\n    command: x\n  - name: a\n    command: y\n"), 0644))

	code, _, stderr := f.run("generate-config", "cursor")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Cannot load server registry")

	f.settings.Registry = "missing.yaml"
	code, _, _ = f.run("start")
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, f.fake.Calls())
}

func TestInit(t *testing.T) {
	f := newFixture(t)
	alpha := f.fetch("alpha", "package.json")

	code, stdout, stderr := f.run("init")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Initialized 4 servers")
	assert.Contains(t, stderr, "beta is not fetched")

	calls := f.fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "git submodule update --init --recursive", calls[0].String())
	assert.Equal(t, f.root, calls[0].Dir)
	assert.Equal(t, "npm install", calls[1].String())
	assert.Equal(t, alpha, calls[1].Dir)
}

func TestInitWithoutGit(t *testing.T) {
	f := newFixture(t)
	f.fake.Missing["git"] = true

	code, _, stderr := f.run("init")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Required tool not installed: git")
	assert.Empty(t, f.fake.Calls())
}

func TestAdd(t *testing.T) {
	f := newFixture(t)

	code, stdout, stderr := f.run("add", "gamma", "https://example.com/gamma.git")
	require.Equal(t, ExitOK, code, stderr)
	assert.Equal(t, []string{
		"git submodule add https://example.com/gamma.git servers/gamma",
	}, f.fake.Lines())
	assert.Contains(t, stdout, "Added gamma")
	assert.Contains(t, stdout, "Register it in")

	code, _, _ = f.run("add", "../evil", "https://example.com/x.git")
	assert.Equal(t, ExitFailure, code)
	assert.Len(t, f.fake.Calls(), 1)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)

	code, _, stderr := f.run("update", "nosuch")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "No such server")

	code, _, stderr = f.run("update", "beta")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Server not fetched")
	assert.Empty(t, f.fake.Calls())

	alpha := f.fetch("alpha", "requirements.txt")
	code, stdout, stderr := f.run("update", "alpha")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Updated alpha")

	calls := f.fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "git submodule update --remote --init -- servers/alpha", calls[0].String())
	assert.True(t, strings.HasPrefix(calls[1].String(), "pip"))
	assert.Equal(t, alpha, calls[1].Dir)
}

func TestSupervisorCommands(t *testing.T) {
	f := newFixture(t)
	eco := filepath.Join(f.root, DefaultEcosystem)

	code, _, stderr := f.run("start", "alpha")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Server not fetched")

	f.fetch("alpha", "package.json")
	code, stdout, stderr := f.run("start", "alpha")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Started alpha")
	assert.Equal(t, []string{"pm2 start " + eco + " --only alpha"}, f.fake.Lines())

	b, err := os.ReadFile(eco)
	require.NoError(t, err)
	var e struct {
		Apps []struct {
			Name string `json:"name"`
		} `json:"apps"`
	}
	require.NoError(t, json.Unmarshal(b, &e))
	require.Len(t, e.Apps, 4)
	assert.Equal(t, "helper", e.Apps[3].Name)

	// packaged servers need no checkout
	code, _, stderr = f.run("restart", "search")
	require.Equal(t, ExitOK, code, stderr)

	code, stdout, _ = f.run("stop")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "Stopped all servers")

	assert.Equal(t, []string{
		"pm2 start " + eco + " --only alpha",
		"pm2 restart " + eco + " --only search",
		"pm2 stop " + eco,
	}, f.fake.Lines())

	code, _, stderr = f.run("stop", "nosuch")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "No such server")
}

func TestMissingSupervisor(t *testing.T) {
	f := newFixture(t)
	f.fake.Missing["pm2"] = true

	code, _, stderr := f.run("stop")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "npm install -g pm2")

	code, _, _ = f.run("list")
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, f.fake.Calls())
}

func TestListAndLogs(t *testing.T) {
	f := newFixture(t)

	code, _, _ := f.run("list")
	require.Equal(t, ExitOK, code)
	code, _, _ = f.run("logs")
	require.Equal(t, ExitOK, code)
	code, _, _ = f.run("logs", "search")
	require.Equal(t, ExitOK, code)
	code, _, _ = f.run("logs", "nosuch")
	assert.Equal(t, ExitFailure, code)

	calls := f.fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "pm2 list", calls[0].String())
	assert.Equal(t, "pm2 logs", calls[1].String())
	assert.Equal(t, "pm2 logs search", calls[2].String())
	for _, c := range calls {
		assert.True(t, c.Attach)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	started := time.Now().Add(-90 * time.Minute).UnixMilli()
	f.fake.Outputs["pm2 jlist"] = []byte(`[
	 {"name":"search","pid":42,"pm2_env":{"status":"online","pm_uptime":` +
		jsonInt(started) + `,"restart_time":0}},
	 {"name":"beta","pid":0,"pm2_env":{"status":"errored","restart_time":7}}
	]`)

	code, stdout, stderr := f.run("status")
	require.Equal(t, ExitOK, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Regexp(t, `^beta\s+errored\s+-\s+7\s+-$`, lines[1])
	assert.Regexp(t, `^search\s+online\s+1:30:\d\d\s+0\s+42$`, lines[2])
	assert.Regexp(t, `^alpha\s+absent`, lines[3])
	assert.Regexp(t, `^helper \(internal\)\s+absent`, lines[4])
}

func TestStatusAfterDaemonSpawn(t *testing.T) {
	f := newFixture(t)
	f.fake.Outputs["pm2 jlist"] = []byte("[PM2] Spawning PM2 daemon with pm2_home=/root/.pm2\n" +
		"[PM2] PM2 Successfully daemonized\n" +
		`[{"name":"alpha","pid":9,"pm2_env":{"status":"stopped","restart_time":1}}]` + "\n")

	code, stdout, stderr := f.run("status")
	require.Equal(t, ExitOK, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5)
	assert.Regexp(t, `^alpha\s+stopped\s+-\s+1\s+9$`, lines[1])
	assert.Regexp(t, `^beta\s+absent`, lines[2])
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	f.fetch("alpha", "package.json")

	code, stdout, stderr := f.run("info")
	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "Registry:   "+filepath.Join(f.root, DefaultRegistry))
	assert.Contains(t, stdout, "4 servers:")
	assert.Regexp(t, `alpha\n    Kind:     script\n    Internal: no\n    Fetched:  yes\n    Runtime:  node`, stdout)
	assert.Regexp(t, `helper\n    Kind:     package\n    Internal: yes\n    Fetched:  no`, stdout)
	assert.Empty(t, f.fake.Calls())
}
