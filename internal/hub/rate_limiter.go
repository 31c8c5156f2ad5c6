package hub

import (
	"sync"
	"time"
)

// RateLimiter coalesces per-session output so a chatty REPL becomes one
// message per interval instead of one per read.
type RateLimiter struct {
	mu       sync.Mutex
	pending  map[string]*pendingOutput
	interval time.Duration
	onFlush  func(name string, msg OutputMessage)
}

type pendingOutput struct {
	sessionID string
	entries   []OutputEntry
	pendingLn string
	atPrompt  bool
	timer     *time.Timer
}

func NewRateLimiter(interval time.Duration, onFlush func(string, OutputMessage)) *RateLimiter {
	return &RateLimiter{
		pending:  make(map[string]*pendingOutput),
		interval: interval,
		onFlush:  onFlush,
	}
}

// Add accumulates one output message. Entries append; the partial line and
// prompt flag always reflect the latest message.
func (r *RateLimiter) Add(msg OutputMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := msg.Name
	p, exists := r.pending[name]
	if !exists {
		p = &pendingOutput{sessionID: msg.SessionID}
		r.pending[name] = p
	}

	p.entries = append(p.entries, msg.Entries...)
	p.pendingLn = msg.Pending
	p.atPrompt = msg.AtPrompt

	if p.timer == nil {
		p.timer = time.AfterFunc(r.interval, func() {
			r.flushSession(name)
		})
	}
}

func (r *RateLimiter) flushSession(name string) {
	r.mu.Lock()
	p, exists := r.pending[name]
	if !exists {
		r.mu.Unlock()
		return
	}
	delete(r.pending, name)
	r.mu.Unlock()

	if r.onFlush != nil {
		msg := OutputMessage{
			Type:      "output",
			SessionID: p.sessionID,
			Name:      name,
			Entries:   p.entries,
			Pending:   p.pendingLn,
			AtPrompt:  p.atPrompt,
		}
		r.onFlush(name, msg)
	}
}

func (r *RateLimiter) FlushAll() {
	r.mu.Lock()
	names := make([]string, 0, len(r.pending))
	for name := range r.pending {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.flushSession(name)
	}
}
