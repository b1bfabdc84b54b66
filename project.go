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

package mcpvisor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Target describes the configuration schema of one MCP client.
type Target struct {
	Name     string // as given on the command line
	Envelope string // top level key holding the server map
	FileName string // file written by WriteConfig
	Env      bool   // whether invocations carry an env map
}

var targets = []Target{
	{
		Name:     "claude",
		Envelope: "mcpServers",
		FileName: "claude_desktop_config.json",
		Env:      true,
	},
	{
		Name:     "vscode",
		Envelope: "mcp.servers",
		FileName: "vscode_settings.json",
	},
	{
		Name:     "cursor",
		Envelope: "mcpServers",
		FileName: "cursor_settings.json",
	},
}

// Targets returns the supported clients, in a stable order.
func Targets() []Target {
	return append([]Target{}, targets...)
}

// TargetNames returns the names of the supported clients.
func TargetNames() []string {
	rv := make([]string, 0, len(targets))
	for _, t := range targets {
		rv = append(rv, t.Name)
	}
	return rv
}

// LookupTarget finds a client by name.  Unknown names fail with
// ErrUnsupportedClient.
func LookupTarget(name string) (Target, error) {
	for _, t := range targets {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedClient, name)
}

// Server is a projected invocation.  Env is nil for targets that do not
// accept environment variables, and otherwise always present (possibly
// empty) in the output.
type Server struct {
	Command string
	Args    []string
	Env     map[string]string
}

type serverNoEnv struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type serverEnv struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// marshal is json.Marshal without HTML escaping: arguments often carry
// URLs, and "&" should stay readable in a file people edit.
func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if e := enc.Encode(v); e != nil {
		return nil, e
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (s Server) MarshalJSON() ([]byte, error) {
	args := s.Args
	if args == nil {
		args = []string{}
	}
	if s.Env == nil {
		return marshal(serverNoEnv{Command: s.Command, Args: args})
	}
	return marshal(serverEnv{Command: s.Command, Args: args, Env: s.Env})
}

// Entry is a named server within a Document.
type Entry struct {
	Name   string
	Server Server
}

// Document is a projected client configuration.  Entries keep registry
// order, and so does the JSON encoding.
type Document struct {
	Target  Target
	Entries []Entry
}

// Names returns the server names in the document.
func (d *Document) Names() []string {
	rv := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		rv = append(rv, e.Name)
	}
	return rv
}

// Server returns the named entry, if present.
func (d *Document) Server(name string) (Server, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e.Server, true
		}
	}
	return Server{}, false
}

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	key, e := marshal(d.Target.Envelope)
	if e != nil {
		return nil, e
	}
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteString(":{")
	for i, ent := range d.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, e := marshal(ent.Name)
		if e != nil {
			return nil, e
		}
		body, e := marshal(ent.Server)
		if e != nil {
			return nil, e
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Encode renders the document the way it is written to disk: two space
// indentation and a trailing newline.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if e := enc.Encode(d); e != nil {
		return nil, e
	}
	return buf.Bytes(), nil
}

// Projector turns a Registry into client configuration documents.
// ServersRoot is the directory holding server checkouts; LocalScript
// entry points are resolved beneath it.
type Projector struct {
	ServersRoot string
}

// Project builds the document for the named target.  Internal servers are
// left out.  It has no side effects.
func (p *Projector) Project(reg *Registry, target string) (*Document, error) {
	t, e := LookupTarget(target)
	if e != nil {
		return nil, e
	}
	doc := &Document{Target: t, Entries: make([]Entry, 0, reg.Len())}
	for i := range reg.descs {
		d := &reg.descs[i]
		if d.Internal {
			continue
		}
		inv := d.Invocation(p.ServersRoot)
		srv := Server{Command: inv.Command, Args: inv.Args}
		if t.Env {
			srv.Env = inv.Env
		}
		doc.Entries = append(doc.Entries, Entry{Name: d.Name, Server: srv})
	}
	return doc, nil
}

// Write projects the registry and writes the result into dir, under the
// target's file name, replacing any existing file.  Nothing is written if
// the target is unknown.  It returns the path written.
func (p *Projector) Write(reg *Registry, target string, dir string) (string, error) {
	doc, e := p.Project(reg, target)
	if e != nil {
		return "", e
	}
	b, e := doc.Encode()
	if e != nil {
		return "", e
	}
	path := filepath.Join(dir, doc.Target.FileName)
	if e := os.WriteFile(path, b, 0644); e != nil {
		return "", e
	}
	return path, nil
}
