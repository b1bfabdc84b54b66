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

package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/runner"
)

func testRegistry() *mcpvisor.Registry {
	r, e := mcpvisor.NewRegistry(
		mcpvisor.Descriptor{
			Name:    "search",
			Command: "npx",
			Args:    []string{"-y", "@acme/search"},
			Env:     map[string]string{"API_KEY": "x"},
		},
		mcpvisor.Descriptor{
			Name:     "helper",
			Kind:     mcpvisor.LocalScript,
			Script:   "dist/index.js",
			Internal: true,
		},
	)
	if e != nil {
		panic(e)
	}
	return r
}

const sampleJlist = `[PM2] Spawning PM2 daemon
[{"name":"search","pid":42,"pm2_env":{"status":"online","pm_uptime":1700000000000,"restart_time":2}},
 {"name":"helper","pid":0,"pm2_env":{"status":"errored","pm_uptime":0,"restart_time":15}}]`

func TestEcosystem(t *testing.T) {
	Convey("The ecosystem file covers every server", t, func() {
		root := t.TempDir()
		eco := NewEcosystem(testRegistry(), root)
		So(eco.Apps, ShouldHaveLength, 2)

		search := eco.Apps[0]
		So(search.Name, ShouldEqual, "search")
		So(search.Script, ShouldEqual, "npx")
		So(search.Args, ShouldResemble, []string{"-y", "@acme/search"})
		So(search.Env, ShouldResemble, map[string]string{"API_KEY": "x"})
		So(search.Interpreter, ShouldEqual, "none")
		So(search.Cwd, ShouldEqual, "")

		helper := eco.Apps[1]
		So(helper.Name, ShouldEqual, "helper")
		So(helper.Script, ShouldEqual, mcpvisor.LocalRuntime)
		So(helper.Args, ShouldResemble,
			[]string{filepath.Join(root, "helper", "dist", "index.js")})
		So(helper.Cwd, ShouldEqual, filepath.Join(root, "helper"))
		So(helper.Env, ShouldBeNil)
	})
}

func TestParseProcesses(t *testing.T) {
	Convey("Parsing the supervisor process list", t, func() {
		procs, e := ParseProcesses([]byte(sampleJlist))
		So(e, ShouldBeNil)
		So(procs, ShouldHaveLength, 2)
		So(procs[0].Name, ShouldEqual, "helper")
		So(procs[0].Status, ShouldEqual, "errored")
		So(procs[0].Started.IsZero(), ShouldBeTrue)
		So(procs[1].Name, ShouldEqual, "search")
		So(procs[1].PID, ShouldEqual, 42)
		So(procs[1].Restarts, ShouldEqual, 2)
		So(procs[1].Started.UnixMilli(), ShouldEqual, int64(1700000000000))

		procs, e = ParseProcesses([]byte("  \n"))
		So(e, ShouldBeNil)
		So(procs, ShouldBeEmpty)

		_, e = ParseProcesses([]byte("[not json"))
		So(e, ShouldNotBeNil)

		_, e = ParseProcesses([]byte("[PM2] Spawning PM2 daemon\n"))
		So(e, ShouldNotBeNil)
	})

	Convey("Banners ahead of the list are skipped", t, func() {
		banner := "[PM2] Spawning PM2 daemon with pm2_home=/home/u/.pm2\n" +
			"[PM2][WARN] Current process list is not synchronized\n" +
			"[PM2] PM2 Successfully daemonized\n"

		procs, e := ParseProcesses([]byte(banner + "[]\n"))
		So(e, ShouldBeNil)
		So(procs, ShouldBeEmpty)

		procs, e = ParseProcesses([]byte(banner + "[\n" +
			`  {"name":"b","pid":7,"pm2_env":{"status":"online"}},` + "\n" +
			`  {"name":"a","pid":0,"pm2_env":{"status":"stopped"}}` + "\n]\n"))
		So(e, ShouldBeNil)
		So(procs, ShouldHaveLength, 2)
		So(procs[0].Name, ShouldEqual, "a")
		So(procs[1].PID, ShouldEqual, 7)

		procs, e = ParseProcesses([]byte(banner +
			`[{"name":"solo","pid":3,"pm2_env":{"status":"online"}}]`))
		So(e, ShouldBeNil)
		So(procs, ShouldHaveLength, 1)
		So(procs[0].Name, ShouldEqual, "solo")
	})
}

func TestSupervisorCommands(t *testing.T) {
	Convey("Given a supervisor backed by a fake runner", t, func() {
		dir := t.TempDir()
		fake := runner.NewFake()
		eco := filepath.Join(dir, "ecosystem.json")
		s := New(fake, "", eco, filepath.Join(dir, "servers"))
		reg := testRegistry()
		ctx := context.Background()

		Convey("Start writes the ecosystem and starts everything", func() {
			So(s.Start(ctx, reg, ""), ShouldBeNil)
			So(fake.Lines(), ShouldResemble, []string{"pm2 start " + eco})

			b, e := os.ReadFile(eco)
			So(e, ShouldBeNil)
			var got Ecosystem
			So(json.Unmarshal(b, &got), ShouldBeNil)
			So(got.Apps, ShouldHaveLength, 2)
		})

		Convey("Named operations are limited to that server", func() {
			So(s.Stop(ctx, reg, "search"), ShouldBeNil)
			So(s.Restart(ctx, reg, "helper"), ShouldBeNil)
			So(fake.Lines(), ShouldResemble, []string{
				"pm2 stop " + eco + " --only search",
				"pm2 restart " + eco + " --only helper",
			})
		})

		Convey("Unknown servers are rejected before running anything", func() {
			e := s.Start(ctx, reg, "nosuch")
			So(errors.Is(e, mcpvisor.ErrUnknownServer), ShouldBeTrue)
			So(fake.Calls(), ShouldBeEmpty)
		})

		Convey("A missing supervisor is reported", func() {
			fake.Missing["pm2"] = true
			e := s.Start(ctx, reg, "")
			So(errors.Is(e, mcpvisor.ErrMissingDependency), ShouldBeTrue)
			So(e.Error(), ShouldContainSubstring, "npm install -g pm2")
			So(fake.Calls(), ShouldBeEmpty)
			_, e = os.Stat(eco)
			So(os.IsNotExist(e), ShouldBeTrue)
		})

		Convey("List and logs share the terminal", func() {
			So(s.List(ctx), ShouldBeNil)
			So(s.Logs(ctx, "search"), ShouldBeNil)
			So(s.Logs(ctx, ""), ShouldBeNil)
			calls := fake.Calls()
			So(calls, ShouldHaveLength, 3)
			for _, c := range calls {
				So(c.Attach, ShouldBeTrue)
			}
			So(fake.Lines(), ShouldResemble, []string{
				"pm2 list", "pm2 logs search", "pm2 logs"})
		})

		Convey("Processes come from the JSON list", func() {
			fake.Outputs["pm2 jlist"] = []byte(sampleJlist)
			procs, e := s.Processes(ctx)
			So(e, ShouldBeNil)
			So(procs, ShouldHaveLength, 2)
		})

		Convey("Supervisor failures are returned", func() {
			fake.Errors["pm2 start "+eco] = errors.New("exit status 1")
			So(s.Start(ctx, reg, ""), ShouldNotBeNil)
		})
	})
}
