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
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/mcpvisor/util"
	"github.com/gdamore/mcpvisor/rest"
	"github.com/gdamore/mcpvisor/submodule"
)

func optName(args []string) string {
	if len(args) != 0 {
		return args[0]
	}
	return ""
}

// install installs every fetched server of the registry.  Script servers
// that are not fetched are warned about; packaged servers need no
// checkout, so for them a missing directory is expected.
func (a *app) install(ctx context.Context, reg *mcpvisor.Registry, g *submodule.Submodules) error {
	in := a.installer()
	for _, d := range reg.Descriptors() {
		if !g.Fetched(d.Name) {
			if d.Kind == mcpvisor.LocalScript {
				a.logger.Printf("Warning: %s is not fetched (%s), skipping",
					d.Name, g.Dir(d.Name))
			} else {
				a.debug.Printf("No checkout for %s", d.Name)
			}
			continue
		}
		if _, e := in.Install(ctx, g.Dir(d.Name)); e != nil {
			return fmt.Errorf("%s: %w", d.Name, e)
		}
	}
	return nil
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Fetch all server submodules and install their dependencies",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, e := a.registry()
			if e != nil {
				return e
			}
			g := a.submodules()
			if e := g.Init(ctx); e != nil {
				return e
			}
			if e := a.install(ctx, reg, g); e != nil {
				return e
			}
			a.printf("Initialized %d servers in %s\n", reg.Len(),
				a.settings.ServersDir)
			return nil
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a server as a submodule and install its dependencies",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, url := args[0], args[1]
			g := a.submodules()
			if e := g.Add(ctx, name, url); e != nil {
				return e
			}
			kind, e := a.installer().Install(ctx, g.Dir(name))
			if e != nil {
				return fmt.Errorf("%s: %w", name, e)
			}
			a.printf("Added %s (%s runtime) in %s\n", name, kind, g.Dir(name))
			a.printf("Register it in %s to run it and include it in client configs.\n",
				a.settings.Registry)
			return nil
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [name]",
		Short: "Update one or all servers to their latest version and reinstall",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := optName(args)
			reg, e := a.registry()
			if e != nil {
				return e
			}
			g := a.submodules()
			if name == "" {
				if e := g.Update(ctx, ""); e != nil {
					return e
				}
				if e := a.install(ctx, reg, g); e != nil {
					return e
				}
				a.printf("Updated all servers\n")
				return nil
			}
			if _, e := reg.Lookup(name); e != nil {
				return e
			}
			if e := g.Update(ctx, name); e != nil {
				return e
			}
			if _, e := a.installer().Install(ctx, g.Dir(name)); e != nil {
				return fmt.Errorf("%s: %w", name, e)
			}
			a.printf("Updated %s\n", name)
			return nil
		},
	}
}

// fetchedScripts makes sure script servers have a checkout to run.  With
// a name only that server is checked.
func (a *app) fetchedScripts(reg *mcpvisor.Registry, name string) error {
	g := a.submodules()
	if name != "" {
		d, e := reg.Lookup(name)
		if e != nil {
			return e
		}
		if d.Kind == mcpvisor.LocalScript {
			return g.Require(name)
		}
		return nil
	}
	for _, d := range reg.Descriptors() {
		if d.Kind == mcpvisor.LocalScript && !g.Fetched(d.Name) {
			a.logger.Printf("Warning: %s is not fetched, it will fail to start",
				d.Name)
		}
	}
	return nil
}

type superVerb struct {
	use   string
	short string
	done  string
	check bool
}

func (a *app) superCmd(v superVerb) *cobra.Command {
	return &cobra.Command{
		Use:   v.use + " [name]",
		Short: v.short,
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := optName(args)
			reg, e := a.registry()
			if e != nil {
				return e
			}
			if v.check {
				if e := a.fetchedScripts(reg, name); e != nil {
					return e
				}
			}
			s := a.supervisor()
			switch v.use {
			case "start":
				e = s.Start(ctx, reg, name)
			case "stop":
				e = s.Stop(ctx, reg, name)
			case "restart":
				e = s.Restart(ctx, reg, name)
			}
			if e != nil {
				return e
			}
			if name == "" {
				name = "all servers"
			}
			a.printf("%s %s\n", v.done, name)
			return nil
		},
	}
}

func (a *app) startCmd() *cobra.Command {
	return a.superCmd(superVerb{
		use:   "start",
		short: "Start one or all servers under the supervisor",
		done:  "Started",
		check: true,
	})
}

func (a *app) stopCmd() *cobra.Command {
	return a.superCmd(superVerb{
		use:   "stop",
		short: "Stop one or all servers",
		done:  "Stopped",
	})
}

func (a *app) restartCmd() *cobra.Command {
	return a.superCmd(superVerb{
		use:   "restart",
		short: "Restart one or all servers",
		done:  "Restarted",
		check: true,
	})
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the supervisor's process list",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.supervisor().List(cmd.Context())
		},
	}
}

func (a *app) logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs [name]",
		Short: "Follow the logs of one or all servers",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := optName(args)
			if name != "" {
				reg, e := a.registry()
				if e != nil {
					return e
				}
				if _, e := reg.Lookup(name); e != nil {
					return e
				}
			}
			return a.supervisor().Logs(cmd.Context(), name)
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of every registered server",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, e := a.registry()
			if e != nil {
				return e
			}
			procs, e := a.supervisor().Processes(cmd.Context())
			if e != nil {
				return e
			}
			rows := util.Rows(reg, procs, time.Now())
			util.SortRows(rows)

			tw := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATE\tUPTIME\tRESTARTS\tPID")
			for _, r := range rows {
				name := r.Name
				if r.Internal {
					name += " (internal)"
				}
				uptime := "-"
				if r.State == util.StateOnline {
					uptime = util.FormatDuration(r.Uptime)
				}
				pid := "-"
				if r.PID > 0 {
					pid = fmt.Sprint(r.PID)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					name, r.State, uptime, r.Restarts, pid)
			}
			return tw.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show settings and registered servers",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			a.printf("Root:       %s\n", s.Root)
			a.printf("Registry:   %s\n", s.Registry)
			a.printf("Servers:    %s\n", s.ServersDir)
			a.printf("Ecosystem:  %s\n", s.Ecosystem)
			a.printf("Output:     %s\n", s.OutputDir)
			a.printf("Supervisor: %s\n", s.Supervisor)
			a.printf("Timeout:    %v\n", s.Timeout)
			a.printf("Targets:    %s\n", strings.Join(mcpvisor.TargetNames(), ", "))

			reg, e := a.registry()
			if e != nil {
				return e
			}
			g := a.submodules()
			a.printf("\n%d servers:\n", reg.Len())
			for _, d := range reg.Descriptors() {
				a.printf("\n  %s\n", d.Name)
				if d.Description != "" {
					a.printf("    Desc:     %s\n", d.Description)
				}
				a.printf("    Kind:     %s\n", d.Kind)
				a.printf("    Internal: %s\n", yesNo(d.Internal))
				a.printf("    Fetched:  %s\n", yesNo(g.Fetched(d.Name)))
				a.printf("    Runtime:  %s\n", mcpvisor.Detect(g.Dir(d.Name)))
			}
			return nil
		},
	}
}

func (a *app) generateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "generate-config <target>",
		Short:     "Write the MCP client configuration for a target",
		Long:      "Write the MCP client configuration for one of: " + strings.Join(mcpvisor.TargetNames(), ", "),
		ValidArgs: mcpvisor.TargetNames(),
		Args:      usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, e := mcpvisor.LookupTarget(args[0]); e != nil {
				return e
			}
			reg, e := a.registry()
			if e != nil {
				return e
			}
			proj := &mcpvisor.Projector{ServersRoot: a.settings.ServersDir}
			path, e := proj.Write(reg, args[0], a.settings.OutputDir)
			if e != nil {
				return e
			}
			a.printf("Wrote %s\n", path)
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry and generated configs over HTTP (read only)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h := rest.NewHandler(a.registry, a.settings.ServersDir)
			srv := &http.Server{Addr: a.settings.Addr, Handler: h}

			errs := make(chan error, 1)
			go func() {
				errs <- srv.ListenAndServe()
			}()
			a.logger.Printf("Serving on http://%s", a.settings.Addr)

			select {
			case e := <-errs:
				return e
			case <-ctx.Done():
			}
			a.logger.Printf("Shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if e := srv.Shutdown(sctx); e != nil {
				return e
			}
			if e := <-errs; !errors.Is(e, http.ErrServerClosed) {
				return e
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&a.settings.Addr, "addr", a.settings.Addr, "listen address")
	return cmd
}
