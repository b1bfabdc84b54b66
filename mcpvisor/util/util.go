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

// Package util is used for internal implementation bits in the CLI.
package util

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/mcpvisor"
	"github.com/gdamore/mcpvisor/supervisor"
)

// Supervisor states we sort on.  Anything else sorts with "stopped".
const (
	StateOnline  = "online"
	StateErrored = "errored"
	StateAbsent  = "absent" // not known to the supervisor
)

// Row is one line of status output.
type Row struct {
	Name     string
	Internal bool
	State    string
	Uptime   time.Duration
	Restarts int
	PID      int
}

func Status(p *supervisor.Process) string {
	if p == nil {
		return StateAbsent
	}
	if p.Status == "" {
		return "unknown"
	}
	return p.Status
}

func FormatDuration(d time.Duration) string {

	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

// Rows joins the registry with the supervisor's process list.  Processes
// the registry does not know about are left out.
func Rows(reg *mcpvisor.Registry, procs []supervisor.Process, now time.Time) []Row {
	byName := make(map[string]*supervisor.Process, len(procs))
	for i := range procs {
		byName[procs[i].Name] = &procs[i]
	}
	rows := make([]Row, 0, reg.Len())
	for _, d := range reg.Descriptors() {
		p := byName[d.Name]
		row := Row{Name: d.Name, Internal: d.Internal, State: Status(p)}
		if p != nil {
			row.Restarts = p.Restarts
			row.PID = p.PID
			if p.Status == StateOnline && !p.Started.IsZero() {
				row.Uptime = now.Sub(p.Started)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func rank(state string) int {
	switch state {
	case StateErrored:
		return 0
	case StateOnline:
		return 1
	case StateAbsent:
		return 3
	}
	return 2
}

type sorted []Row

func (s sorted) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sorted) Len() int {
	return len(s)
}

func (s sorted) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	// put failed items at front, then running ones
	if ra, rb := rank(a.State), rank(b.State); ra != rb {
		return ra < rb
	}
	return a.Name < b.Name
}

func SortRows(items []Row) {
	sort.Sort(sorted(items))
}
