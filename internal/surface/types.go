package surface

import (
	"time"

	"github.com/nverno/inf-perl/internal/parser"
)

// EventType distinguishes the kind of event produced by a Surface.
type EventType int

const (
	// EventOutput indicates that new data was read from the PTY.
	EventOutput EventType = iota
	// EventExit indicates that the child process has terminated.
	EventExit
)

// Event is a single notification emitted by a Surface. Output events carry
// the raw chunk; the exit event carries the final process state.
type Event struct {
	Type  EventType
	ID    string
	Data  string
	State ExitState
}

// ExitState is how the child process ended. Code is -1 when the process was
// killed by a signal.
type ExitState struct {
	Code int
	Err  error
}

// Entry is one completed, ANSI-stripped line of scrollback.
type Entry struct {
	Seq   uint64       `json:"seq"`
	Text  string       `json:"text"`
	Class parser.Class `json:"class"`
	Time  time.Time    `json:"time"`
}

// ExitFunc is an exit hook. Hooks run exactly once, in registration order,
// whatever the termination reason.
type ExitFunc func(ExitState)
