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

// Package mcpvisor manages a collection of MCP servers that are checked out
// as version control submodules, started under an external process
// supervisor, and exported to MCP client applications.
//
// The core of the package is the Registry, an ordered list of Descriptors
// loaded from a YAML (or JSON) file.  A Registry is never modified once
// loaded; every invocation of the command line tool reads it again.
//
// Project turns a Registry into the configuration document understood by
// a particular client (see Targets).  Servers marked internal are never
// exported: they exist only so that other servers can rely on them while
// running under the supervisor.
//
// Detect classifies a server checkout by the marker files it contains, which
// selects the package manager used to install it.
//
// The mcpvisor command, in the mcpvisor subdirectory, ties these pieces to
// the supervisor, git, and the package managers.
package mcpvisor
