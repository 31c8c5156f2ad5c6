package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nverno/inf-perl/internal/session"
)

const pollInterval = 50 * time.Millisecond

// Runner replays script steps into a live session through the manager.
type Runner struct {
	mgr      *session.Manager
	interval time.Duration
}

func NewRunner(mgr *session.Manager) *Runner {
	return &Runner{mgr: mgr, interval: pollInterval}
}

// Run executes the steps in order against the named session. Send steps go
// through the manager so they land in the input ledger and history ring like
// typed lines. A wait_prompt step fails the run if the prompt does not show
// up within its timeout or the process exits first.
func (r *Runner) Run(ctx context.Context, sessionName string, sc *Script) error {
	if sc == nil {
		return errors.New("script is required")
	}
	for i, step := range sc.Steps {
		var err error
		switch {
		case step.WaitPrompt != "":
			err = r.waitPrompt(ctx, sessionName, step)
		default:
			err = r.mgr.SendInput(ctx, sessionName, step.Send)
		}
		if err != nil {
			return fmt.Errorf("script %s step %d: %w", sc.ID, i+1, err)
		}
	}
	return nil
}

func (r *Runner) waitPrompt(ctx context.Context, sessionName string, step Step) error {
	timeout, err := time.ParseDuration(step.WaitPrompt)
	if err != nil {
		return fmt.Errorf("wait_prompt %q: %w", step.WaitPrompt, err)
	}

	sess, err := r.mgr.Resolve(sessionName)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if sess.Surface.AtPrompt() {
			return nil
		}
		if !sess.Surface.Alive() {
			return fmt.Errorf("session %q exited while waiting for prompt", sessionName)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no prompt in session %q after %s", sessionName, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
