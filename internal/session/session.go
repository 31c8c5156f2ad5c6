// Package session is the registry of live REPL sessions. A session pairs a
// name with one running surface; Ensure locates or creates the pair
// idempotently, and the exit path persists the input-history ring.
package session

import (
	"sync"
	"time"

	"github.com/nverno/inf-perl/internal/surface"
)

// Session is one live name -> surface pairing plus its launch record.
type Session struct {
	ID          string
	Name        string
	Profile     string
	Command     string
	HistoryFile string
	Startfile   string
	CreatedAt   time.Time

	Surface *surface.Surface

	flushOnce sync.Once
}

// Snapshot is the JSON view of a live session.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Profile     string    `json:"profile"`
	Command     string    `json:"command"`
	Status      string    `json:"status"`
	AtPrompt    bool      `json:"at_prompt"`
	Pid         int       `json:"pid,omitempty"`
	HistoryFile string    `json:"history_file,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	status := "running"
	if !s.Surface.Alive() {
		status = "exited"
	}
	return Snapshot{
		ID:          s.ID,
		Name:        s.Name,
		Profile:     s.Profile,
		Command:     s.Command,
		Status:      status,
		AtPrompt:    s.Surface.AtPrompt(),
		Pid:         s.Surface.Pid(),
		HistoryFile: s.HistoryFile,
		CreatedAt:   s.CreatedAt,
	}
}

// OutputSnapshot is what the output endpoint returns: completed scrollback
// entries from a sequence number on, plus the current partial line.
type OutputSnapshot struct {
	Entries  []surface.Entry `json:"entries"`
	Pending  string          `json:"pending"`
	AtPrompt bool            `json:"at_prompt"`
	Alive    bool            `json:"alive"`
}
