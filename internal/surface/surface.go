// Package surface runs one REPL subprocess on a PTY and keeps the
// line-oriented machinery around it: scrollback with output classification,
// the input-history ring, prompt tracking, and exit hooks.
package surface

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	creackpty "github.com/creack/pty"

	"github.com/nverno/inf-perl/internal/history"
	"github.com/nverno/inf-perl/internal/parser"
)

var (
	ErrDestroyed = errors.New("surface: destroyed")
	ErrExited    = errors.New("surface: process exited")
)

// Config describes one surface. Program and Args are passed to the launch
// call unvalidated; a bad command surfaces the operating-system error.
type Config struct {
	ID   string
	Name string

	Program string
	Args    []string
	Env     []string
	Dir     string

	Cols uint16
	Rows uint16

	// Scrollback is the completed-line capacity, 2000 when zero.
	Scrollback int

	Classifier *parser.Classifier
	History    *history.Ring

	// HistoryFile, when non-empty, is where SaveHistory persists the ring.
	HistoryFile string

	// Startfile, when non-empty, is fed to the process as initial input.
	Startfile string
}

// Surface is a running subprocess attached to a PTY plus its display state.
type Surface struct {
	id        string
	name      string
	createdAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	classifier  *parser.Classifier
	hist        *history.Ring
	historyFile string

	events   chan Event
	readDone chan struct{}

	cols uint16
	rows uint16

	mu        sync.Mutex
	scroll    *scrollRing
	pending   string
	seq       uint64
	atPrompt  bool
	exited    bool
	exitState ExitState
	destroyed bool
	hooks     []ExitFunc

	destroyOnce sync.Once
	ptyOnce     sync.Once
}

// Start spawns the program on a fresh PTY and begins the read and exit
// pumps. The startfile, when configured, must be readable before anything is
// spawned; its contents are written to the process right after launch.
func Start(cfg Config) (*Surface, error) {
	var seed []byte
	if cfg.Startfile != "" {
		data, err := os.ReadFile(cfg.Startfile)
		if err != nil {
			return nil, err
		}
		seed = data
	}

	cmd := exec.Command(cfg.Program, cfg.Args...)
	cmd.Dir = cfg.Dir
	// TERM=dumb keeps readline redraw noise down. Profile env wins on
	// duplicates.
	env := append(os.Environ(), "TERM=dumb")
	cmd.Env = append(env, cfg.Env...)

	cols, rows := cfg.Cols, cfg.Rows
	if cols == 0 {
		cols = 120
	}
	if rows == 0 {
		rows = 30
	}

	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, err
	}

	classifier := cfg.Classifier
	if classifier == nil {
		classifier = parser.Default()
	}
	hist := cfg.History
	if hist == nil {
		hist = history.NewRing(0, true)
	}

	s := &Surface{
		id:          cfg.ID,
		name:        cfg.Name,
		createdAt:   time.Now().UTC(),
		cmd:         cmd,
		ptmx:        ptmx,
		classifier:  classifier,
		hist:        hist,
		historyFile: cfg.HistoryFile,
		events:      make(chan Event, 1024),
		readDone:    make(chan struct{}),
		cols:        cols,
		rows:        rows,
		scroll:      newScrollRing(cfg.Scrollback),
	}

	go s.readPump()
	go s.waitExit()

	if len(seed) > 0 {
		if _, err := ptmx.Write(seed); err != nil {
			s.Destroy()
			return nil, fmt.Errorf("write startfile: %w", err)
		}
	}

	return s, nil
}

func (s *Surface) readPump() {
	defer close(s.readDone)

	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			s.ingest(chunk)
			s.events <- Event{Type: EventOutput, ID: s.id, Data: chunk}
		}
		if err != nil {
			s.flushPending()
			return
		}
	}
}

// ingest splits a raw chunk into completed lines, classifies them into
// scrollback, and retracks whether the stream sits at a prompt. The prompt
// itself is usually the unterminated tail, so the partial line counts.
func (s *Surface) ingest(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending += chunk
	for {
		i := strings.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		line := s.pending[:i]
		s.pending = s.pending[i+1:]
		s.appendLineLocked(line)
	}

	if s.pending != "" {
		s.atPrompt = s.classifier.IsPrompt(s.pending)
	} else if last, ok := s.scroll.last(); ok {
		s.atPrompt = last.Class == parser.ClassPrompt
	}
}

func (s *Surface) appendLineLocked(raw string) {
	s.seq++
	s.scroll.append(Entry{
		Seq:   s.seq,
		Text:  parser.StripANSI(raw),
		Class: s.classifier.Classify(raw),
		Time:  time.Now().UTC(),
	})
}

func (s *Surface) flushPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != "" {
		s.appendLineLocked(s.pending)
		s.pending = ""
	}
}

func (s *Surface) waitExit() {
	err := s.cmd.Wait()

	// Let the reader drain what the process wrote before it died. A forked
	// grandchild can hold the slave side open indefinitely; after the grace
	// period, close the PTY so the blocked read fails. The reader must be
	// finished before the event channel closes below.
	select {
	case <-s.readDone:
	case <-time.After(2 * time.Second):
		_ = s.closePTY()
		<-s.readDone
	}

	state := ExitState{Code: -1}
	if s.cmd.ProcessState != nil {
		state.Code = s.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		state.Err = err
	}

	s.mu.Lock()
	s.exited = true
	s.exitState = state
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(state)
	}

	s.events <- Event{Type: EventExit, ID: s.id, State: state}
	close(s.events)
}

func (s *Surface) ID() string           { return s.id }
func (s *Surface) Name() string         { return s.name }
func (s *Surface) CreatedAt() time.Time { return s.createdAt }

// Events returns the surface's event stream. The channel closes after the
// exit event is delivered.
func (s *Surface) Events() <-chan Event { return s.events }

// Pid returns the child process id, or 0 before launch completes.
func (s *Surface) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// SubmitLine records the line in the history ring and sends it, newline
// terminated, to the process. The surface does not echo input into
// scrollback; whatever appears is the PTY echo the process produces.
func (s *Surface) SubmitLine(line string) error {
	if err := s.writable(); err != nil {
		return err
	}
	s.hist.Add(line)
	if _, err := s.ptmx.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("surface: submit: %w", err)
	}
	return nil
}

// Write sends raw bytes to the process without touching history.
func (s *Surface) Write(p []byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, err := s.ptmx.Write(p); err != nil {
		return fmt.Errorf("surface: write: %w", err)
	}
	return nil
}

func (s *Surface) writable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	if s.exited {
		return ErrExited
	}
	return nil
}

// Interrupt sends ^C through the PTY so the line discipline delivers SIGINT.
func (s *Surface) Interrupt() error {
	return s.Write([]byte{0x03})
}

// Signal delivers a signal straight to the child process.
func (s *Surface) Signal(sig os.Signal) error {
	if s.cmd.Process == nil {
		return ErrExited
	}
	return s.cmd.Process.Signal(sig)
}

// Terminate asks the process to exit without tearing down the surface, so
// the exit path still sees a live buffer.
func (s *Surface) Terminate() error {
	return s.Signal(syscall.SIGTERM)
}

// Resize changes the PTY window size.
func (s *Surface) Resize(cols, rows uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	if err := creackpty.Setsize(s.ptmx, &creackpty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return err
	}
	s.cols = cols
	s.rows = rows
	return nil
}

// Output returns scrollback entries with sequence numbers at or past since.
func (s *Surface) Output(since uint64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll.since(since)
}

// Pending returns the current unterminated line, stripped. When the REPL is
// idle this is the prompt itself.
func (s *Surface) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return parser.StripANSI(s.pending)
}

// AtPrompt reports whether the last thing the process printed looks like a
// prompt.
func (s *Surface) AtPrompt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atPrompt
}

// Alive reports whether the process is still running.
func (s *Surface) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.exited
}

// Destroyed reports whether the buffer half of the surface is gone.
func (s *Surface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// ExitStateIfExited returns the final process state once the process has
// terminated.
func (s *Surface) ExitStateIfExited() (ExitState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitState, s.exited
}

// OnExit registers an exit hook. Hooks run exactly once, in registration
// order, when the process terminates for any reason. Registering after exit
// runs the hook immediately.
func (s *Surface) OnExit(fn ExitFunc) {
	s.mu.Lock()
	if s.exited {
		state := s.exitState
		s.mu.Unlock()
		fn(state)
		return
	}
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// SaveHistory writes the history ring to the configured file. It is a no-op
// when no file is configured or the surface has been destroyed.
func (s *Surface) SaveHistory() error {
	s.mu.Lock()
	destroyed := s.destroyed
	path := s.historyFile
	s.mu.Unlock()

	if destroyed || path == "" {
		return nil
	}
	return history.Save(s.hist, path)
}

// History returns the surface's input-history ring.
func (s *Surface) History() *history.Ring { return s.hist }

// HistoryFile returns the configured history path, empty when persistence is
// off.
func (s *Surface) HistoryFile() string { return s.historyFile }

// closePTY closes the master side at most once, shared between Destroy and
// the exit drain so neither trips on the other.
func (s *Surface) closePTY() (err error) {
	s.ptyOnce.Do(func() { err = s.ptmx.Close() })
	return err
}

// Destroy tears the surface down: marks it gone, signals the process, and
// closes the PTY. Exit hooks still run when the process dies, but history
// flushes become no-ops. Safe to call more than once.
func (s *Surface) Destroy() error {
	var err error
	s.destroyOnce.Do(func() {
		s.mu.Lock()
		s.destroyed = true
		s.mu.Unlock()

		if s.cmd.Process != nil {
			_ = s.cmd.Process.Signal(syscall.SIGTERM)
		}
		err = s.closePTY()
	})
	return err
}
