// Package history holds the input-history ring of a REPL session and its
// persistence to a flat history file, one submitted line per record.
package history

import (
	"sync"
)

const DefaultCapacity = 500

// Ring is a bounded, ordered record of submitted input lines. With
// duplicate suppression on, a line equal to the most recent entry is
// skipped. Blank lines are never recorded. Safe for concurrent use.
type Ring struct {
	mu         sync.Mutex
	lines      []string
	capacity   int
	ignoreDups bool
}

func NewRing(capacity int, ignoreDups bool) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		lines:      make([]string, 0, capacity),
		capacity:   capacity,
		ignoreDups: ignoreDups,
	}
}

// Add records one submitted line, trimming the oldest entries past capacity.
func (r *Ring) Add(line string) {
	if line == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ignoreDups && len(r.lines) > 0 && r.lines[len(r.lines)-1] == line {
		return
	}
	r.lines = append(r.lines, line)
	if len(r.lines) > r.capacity {
		r.lines = r.lines[len(r.lines)-r.capacity:]
	}
}

// Lines returns a copy of the entries, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

// Last returns the most recent entry, or "" when the ring is empty.
func (r *Ring) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}

func (r *Ring) setLines(lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(lines) > r.capacity {
		lines = lines[len(lines)-r.capacity:]
	}
	r.lines = append(r.lines[:0], lines...)
}
