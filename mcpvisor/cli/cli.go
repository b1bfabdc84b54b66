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

// Package cli implements the mcpvisor command line.  Everything the binary
// does is reachable through Dispatch, which returns the exit status rather
// than exiting, so that it can be driven from tests.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/installer"
	"github.com/gdamore/mcpvisor/runner"
	"github.com/gdamore/mcpvisor/submodule"
	"github.com/gdamore/mcpvisor/supervisor"
)

// Exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Options configure Dispatch.  Zero values select the real thing: the
// process' standard streams, DefaultSettings, and a runner that executes
// commands on this system.
type Options struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Settings *Settings
	Runner   runner.Runner
}

// usageError marks errors that are the user's fault in how the command
// was invoked, rather than failures of the command itself.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, v ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, v...)}
}

// usageArgs wraps an argument validator so that its failures count as
// usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if e := check(cmd, args); e != nil {
			return &usageError{msg: e.Error()}
		}
		return nil
	}
}

type app struct {
	opts     Options
	settings Settings
	stdout   io.Writer
	stderr   io.Writer
	logger   *log.Logger
	debug    *log.Logger
	runner   runner.Runner
}

func newApp(opts Options) *app {
	a := &app{opts: opts, stdout: opts.Stdout, stderr: opts.Stderr}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	if opts.Settings != nil {
		a.settings = *opts.Settings
	} else {
		a.settings = DefaultSettings()
	}
	return a
}

// setup runs once flags are parsed.
func (a *app) setup() error {
	s, e := a.settings.Resolve()
	if e != nil {
		return e
	}
	a.settings = s
	a.logger, a.debug = NewLoggers(a.stderr, s.Verbose)
	if a.opts.Runner != nil {
		a.runner = a.opts.Runner
	} else {
		x := runner.NewExec(a.debug, s.Timeout)
		x.Stdout = a.stdout
		x.Stderr = a.stderr
		a.runner = x
	}
	return nil
}

func (a *app) printf(format string, v ...interface{}) {
	fmt.Fprintf(a.stdout, format, v...)
}

func (a *app) registry() (*mcpvisor.Registry, error) {
	return mcpvisor.Load(a.settings.Registry)
}

func (a *app) submodules() *submodule.Submodules {
	g := submodule.New(a.runner, a.settings.Root, a.settings.ServersDir)
	g.Logger = a.logger
	return g
}

func (a *app) installer() *installer.Installer {
	in := installer.New(a.runner)
	in.Logger = a.logger
	return in
}

func (a *app) supervisor() *supervisor.Supervisor {
	s := supervisor.New(a.runner, a.settings.Supervisor,
		a.settings.Ecosystem, a.settings.ServersDir)
	s.Logger = a.logger
	return s
}

func (a *app) command() *cobra.Command {
	s := &a.settings
	root := &cobra.Command{
		Use:   "mcpvisor <command> [args]",
		Short: "Manage MCP server submodules and client configurations",
		Long: `mcpvisor installs, runs and configures the MCP servers kept as
submodules of this repository, and generates configuration files
for MCP clients (` + strings.Join(mcpvisor.TargetNames(), ", ") + `).`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usagef("unknown command %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("missing command")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, e error) error {
		return &usageError{msg: e.Error()}
	})

	f := root.PersistentFlags()
	f.StringVar(&s.Root, "root", s.Root, "repository root (env "+EnvRoot+")")
	f.StringVar(&s.Registry, "registry", s.Registry, "server registry file (env "+EnvRegistry+")")
	f.StringVar(&s.ServersDir, "servers-dir", s.ServersDir, "server checkout directory (env "+EnvServersDir+")")
	f.StringVar(&s.OutputDir, "output-dir", s.OutputDir, "where generated configs go (env "+EnvOutputDir+")")
	f.StringVar(&s.Supervisor, "supervisor", s.Supervisor, "process supervisor command (env "+EnvSupervisor+")")
	f.DurationVar(&s.Timeout, "timeout", s.Timeout, "timeout for external commands (env "+EnvTimeout+")")
	f.BoolVarP(&s.Verbose, "verbose", "v", s.Verbose, "log external commands and their output")

	root.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.updateCmd(),
		a.startCmd(),
		a.stopCmd(),
		a.restartCmd(),
		a.listCmd(),
		a.logsCmd(),
		a.statusCmd(),
		a.infoCmd(),
		a.generateConfigCmd(),
		a.serveCmd(),
	)
	return root
}

// exit reports err and turns it into an exit status.
func (a *app) exit(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitOK
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(a.stderr, "Error: %v\n\n", err)
		if cmd != nil {
			fmt.Fprint(a.stderr, cmd.UsageString())
		}
		return ExitUsage
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	if errors.Is(err, mcpvisor.ErrUnsupportedClient) {
		fmt.Fprintf(a.stderr, "Supported targets: %s\n",
			strings.Join(mcpvisor.TargetNames(), ", "))
	}
	return ExitFailure
}

// Dispatch runs the command line given by argv (without the program
// name) and returns the exit status: ExitOK on success, ExitUsage when
// the command line is wrong, ExitFailure otherwise.
func Dispatch(ctx context.Context, argv []string, opts Options) int {
	a := newApp(opts)
	root := a.command()
	root.SetArgs(argv)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	cmd, err := root.ExecuteContextC(ctx)
	return a.exit(cmd, err)
}
