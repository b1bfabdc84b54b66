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
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Registry is an ordered collection of Descriptors with unique names.
// It is immutable once constructed, and thus safe for concurrent readers.
type Registry struct {
	descs []Descriptor
	index map[string]int
}

// serverSpec is the on-disk form of a Descriptor.
type serverSpec struct {
	Name        string            `mapstructure:"name"`
	Description string            `mapstructure:"description"`
	Kind        string            `mapstructure:"kind"`
	Command     string            `mapstructure:"command"`
	Script      string            `mapstructure:"script"`
	Args        []string          `mapstructure:"args"`
	Dir         string            `mapstructure:"dir"`
	Env         map[string]string `mapstructure:"env"`
	Internal    bool              `mapstructure:"internal"`
}

type registryFile struct {
	Servers []serverSpec `mapstructure:"servers"`
}

func (s *serverSpec) descriptor() (Descriptor, error) {
	d := Descriptor{
		Name:        s.Name,
		Description: s.Description,
		Command:     s.Command,
		Script:      s.Script,
		Args:        s.Args,
		Dir:         s.Dir,
		Env:         s.Env,
		Internal:    s.Internal,
	}
	switch s.Kind {
	case "package", "command":
		d.Kind = PackagedCommand
	case "script":
		d.Kind = LocalScript
	case "":
		switch {
		case s.Command != "" && s.Script != "":
			return d, fmt.Errorf("server %q: both command and script given",
				s.Name)
		case s.Command != "":
			d.Kind = PackagedCommand
		case s.Script != "":
			d.Kind = LocalScript
		default:
			return d, fmt.Errorf("server %q: one of command or script is required",
				s.Name)
		}
	default:
		return d, fmt.Errorf("server %q: unknown kind %q", s.Name, s.Kind)
	}
	return d, nil
}

// Load reads a registry from a YAML or JSON file.  The file holds a single
// mapping with a "servers" list; unknown keys are rejected so that typos do
// not silently drop settings.  All failures wrap ErrConfigLoad.
func Load(path string) (*Registry, error) {
	b, e := os.ReadFile(path)
	if e != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, e)
	}
	r, e := Parse(b)
	if e != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigLoad, path, e)
	}
	return r, nil
}

// Parse decodes a registry from YAML (or JSON) data.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]interface{}
	if e := yaml.Unmarshal(data, &raw); e != nil {
		return nil, e
	}
	if _, ok := raw["servers"]; !ok {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, fmt.Errorf("empty registry")
		}
		return nil, fmt.Errorf("missing servers list")
	}

	var f registryFile
	dec, e := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if e != nil {
		return nil, e
	}
	if e := dec.Decode(raw); e != nil {
		return nil, e
	}

	descs := make([]Descriptor, 0, len(f.Servers))
	for i := range f.Servers {
		d, e := f.Servers[i].descriptor()
		if e != nil {
			return nil, e
		}
		descs = append(descs, d)
	}
	return NewRegistry(descs...)
}

// NewRegistry builds a registry from descriptors, in the order given.
// Names must be unique; a repeated name fails with ErrDuplicateServer
// rather than replacing the earlier entry.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		descs: make([]Descriptor, 0, len(descs)),
		index: make(map[string]int, len(descs)),
	}
	for i := range descs {
		d := &descs[i]
		if e := d.validate(); e != nil {
			return nil, e
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateServer, d.Name)
		}
		r.index[d.Name] = len(r.descs)
		r.descs = append(r.descs, d.clone())
	}
	return r, nil
}

// Len returns the number of servers.
func (r *Registry) Len() int {
	return len(r.descs)
}

// Descriptors returns copies of all descriptors, in registry order.
func (r *Registry) Descriptors() []Descriptor {
	rv := make([]Descriptor, 0, len(r.descs))
	for i := range r.descs {
		rv = append(rv, r.descs[i].clone())
	}
	return rv
}

// External returns the descriptors that may be exported to clients.
func (r *Registry) External() []Descriptor {
	rv := make([]Descriptor, 0, len(r.descs))
	for i := range r.descs {
		if !r.descs[i].Internal {
			rv = append(rv, r.descs[i].clone())
		}
	}
	return rv
}

// Names returns server names in registry order.
func (r *Registry) Names() []string {
	rv := make([]string, 0, len(r.descs))
	for i := range r.descs {
		rv = append(rv, r.descs[i].Name)
	}
	return rv
}

// Lookup finds a server by name.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	if i, ok := r.index[name]; ok {
		return r.descs[i].clone(), nil
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownServer, name)
}
