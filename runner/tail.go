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

package runner

import (
	"sync"
)

// DefaultTailLen is the number of output lines kept for error reports.
const DefaultTailLen = 20

// Tail keeps the most recent lines written to it in a ring.
type Tail struct {
	records    []string
	numRecords int
	mx         sync.Mutex
}

// NewTail returns a Tail holding up to n lines.
func NewTail(n int) *Tail {
	if n <= 0 {
		n = DefaultTailLen
	}
	return &Tail{records: make([]string, n)}
}

// Add records a line, discarding the oldest once full.
func (t *Tail) Add(line string) {
	t.mx.Lock()
	t.records[t.numRecords%len(t.records)] = line
	// NB: numRecords may exceed len(records).  In that case we have
	// looped, and it tracks the next index.
	t.numRecords++
	t.mx.Unlock()
}

// Lines returns the retained lines, oldest first.
func (t *Tail) Lines() []string {
	t.mx.Lock()
	defer t.mx.Unlock()
	cnt := t.numRecords
	if cnt > len(t.records) {
		cnt = len(t.records)
	}
	recs := make([]string, 0, cnt)
	index := t.numRecords - cnt
	for j := 0; j < cnt; j++ {
		recs = append(recs, t.records[index%len(t.records)])
		index++
	}
	return recs
}
