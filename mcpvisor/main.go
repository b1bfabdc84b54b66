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

// Command mcpvisor manages the MCP servers kept as git submodules of a
// repository, and generates MCP client configuration for them.
//
// Subcommands are
//
//	init                     - fetch all servers and install dependencies
//	add <name> <url>         - add a server submodule and install it
//	update [name]            - update one or all servers and reinstall
//	start|stop|restart [name] - control servers through the supervisor
//	list                     - show the supervisor's process list
//	logs [name]              - follow server logs
//	status                   - show the state of every registered server
//	info                     - show settings and registered servers
//	generate-config <target> - write configuration for claude, vscode or cursor
//	serve                    - serve the registry over HTTP, read only
//
// The exit status is 0 on success, 2 for command line errors, and 1 for
// anything else.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/mcpvisor/mcpvisor/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	code := cli.Dispatch(ctx, os.Args[1:], cli.Options{})
	stop()
	os.Exit(code)
}
