package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nverno/inf-perl/internal/command"
	"github.com/nverno/inf-perl/internal/db"
	"github.com/nverno/inf-perl/internal/history"
	"github.com/nverno/inf-perl/internal/hub"
	"github.com/nverno/inf-perl/internal/profile"
	"github.com/nverno/inf-perl/internal/surface"
)

// ErrNotFound reports a name or id with no live session behind it.
var ErrNotFound = errors.New("session not found")

const closeGrace = 3 * time.Second

// Manager owns the name -> session registry. All lookups and the
// locate-or-create path go through it; there is no package-level state.
type Manager struct {
	profiles    *profile.Registry
	hub         *hub.Hub
	sessionRepo *db.SessionRepo
	inputRepo   *db.InputRepo

	mu          sync.Mutex
	sessions    map[string]*Session
	defaultProf string
}

// EnsureRequest names the session to locate or create. Command, when set, is
// an explicit launch line used verbatim in place of the profile's program
// and arguments. Startfile overrides the profile's startfile. Edit, when
// non-nil, lets the caller confirm or rewrite the assembled command line
// before launch.
type EnsureRequest struct {
	Name      string
	Profile   string
	Command   string
	Startfile string
	Edit      command.EditFunc
}

func NewManager(conn *sql.DB, profiles *profile.Registry, hubInst *hub.Hub, defaultProfile string) *Manager {
	if conn == nil || profiles == nil {
		return nil
	}
	if defaultProfile == "" {
		defaultProfile = "reply"
	}
	return &Manager{
		profiles:    profiles,
		hub:         hubInst,
		sessionRepo: db.NewSessionRepo(conn),
		inputRepo:   db.NewInputRepo(conn),
		sessions:    make(map[string]*Session),
		defaultProf: defaultProfile,
	}
}

// DefaultProfile returns the profile used when a request names none.
func (m *Manager) DefaultProfile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultProf
}

func (m *Manager) SetDefaultProfile(id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	m.mu.Lock()
	m.defaultProf = id
	m.mu.Unlock()
}

// Ensure locates or creates the session for a name. When a live session
// already exists under the name it is returned as-is: same surface, no
// second process, created == false. Ensure calls serialize, so two racing
// requests for one name still yield a single spawn.
func (m *Manager) Ensure(ctx context.Context, req EnsureRequest) (*Session, bool, error) {
	m.mu.Lock()
	sess, created, err := m.ensureLocked(ctx, req)
	var infos []hub.SessionInfo
	if created {
		infos = m.sessionInfosLocked()
	}
	m.mu.Unlock()
	if err != nil || !created {
		return sess, created, err
	}

	// Hooks register outside the registry lock: a process that has already
	// died runs them inline, and finishExit needs the lock.
	if sess.HistoryFile != "" {
		sess.Surface.OnExit(func(surface.ExitState) { m.WriteHistoryOnExit(sess) })
	}
	sess.Surface.OnExit(func(st surface.ExitState) { m.finishExit(sess, st) })
	go m.pumpEvents(sess)

	slog.Info("session started", "session", sess.Name, "profile", sess.Profile, "command", sess.Command, "pid", sess.Surface.Pid())
	if m.hub != nil {
		m.hub.BroadcastSessionStatus(sess.ID, sess.Name, "running", false)
		m.hub.BroadcastSessions(infos)
	}
	return sess, true, nil
}

func (m *Manager) ensureLocked(ctx context.Context, req EnsureRequest) (*Session, bool, error) {
	profileID := strings.TrimSpace(req.Profile)
	if profileID == "" {
		profileID = m.defaultProf
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = profileID
	}

	if existing, ok := m.sessions[name]; ok && existing.Surface.Alive() && !existing.Surface.Destroyed() {
		return existing, false, nil
	}

	prof := m.profiles.Get(profileID)
	if prof == nil {
		return nil, false, fmt.Errorf("unknown profile %q", profileID)
	}

	cmdline, err := command.Build(prof.Source(), prof.Args, req.Edit, req.Command)
	if err != nil {
		return nil, false, err
	}
	prog, args, err := command.Split(cmdline)
	if err != nil {
		return nil, false, fmt.Errorf("split command %q: %w", cmdline, err)
	}

	classifier, err := prof.Classifier()
	if err != nil {
		return nil, false, err
	}

	histPath := expandPath(prof.HistoryFile)
	ring := history.NewRing(prof.HistorySize, prof.HistoryDedup())
	if histPath != "" {
		if err := history.Load(ring, histPath); err != nil {
			slog.Warn("history load failed", "session", name, "file", histPath, "error", err)
		}
	}

	startfile := req.Startfile
	if startfile == "" {
		startfile = prof.Startfile
	}

	id := db.NewID()
	srf, err := surface.Start(surface.Config{
		ID:          id,
		Name:        name,
		Program:     prog,
		Args:        args,
		Env:         prof.Env,
		Dir:         expandPath(prof.Dir),
		Classifier:  classifier,
		History:     ring,
		HistoryFile: histPath,
		Startfile:   expandPath(startfile),
	})
	if err != nil {
		return nil, false, err
	}

	sess := &Session{
		ID:          id,
		Name:        name,
		Profile:     profileID,
		Command:     cmdline,
		HistoryFile: histPath,
		Startfile:   startfile,
		CreatedAt:   srf.CreatedAt(),
		Surface:     srf,
	}

	record := &db.Session{
		ID:          sess.ID,
		Name:        sess.Name,
		Profile:     sess.Profile,
		Command:     sess.Command,
		HistoryFile: sess.HistoryFile,
		Status:      "running",
		CreatedAt:   sess.CreatedAt,
	}
	if err := m.sessionRepo.Create(ctx, record); err != nil {
		_ = srf.Destroy()
		return nil, false, err
	}

	m.sessions[name] = sess
	return sess, true, nil
}

// WriteHistoryOnExit persists the session's input-history ring to its
// configured file. The surface must still be intact: a destroyed surface
// means the buffer is gone and the flush silently does nothing. The write
// happens at most once per session however many times this runs, and a
// failed write is logged, never raised.
func (m *Manager) WriteHistoryOnExit(sess *Session) {
	sess.flushOnce.Do(func() {
		if sess.Surface.Destroyed() {
			return
		}
		if err := sess.Surface.SaveHistory(); err != nil {
			slog.Warn("history flush failed", "session", sess.Name, "file", sess.HistoryFile, "error", err)
			return
		}
		count := sess.Surface.History().Len()
		slog.Info("history flushed", "session", sess.Name, "file", sess.HistoryFile, "lines", count)
		if m.hub != nil {
			m.hub.BroadcastHistorySaved(sess.ID, sess.Name, sess.HistoryFile, count)
		}
	})
}

func (m *Manager) finishExit(sess *Session, st surface.ExitState) {
	m.mu.Lock()
	if cur, ok := m.sessions[sess.Name]; ok && cur == sess {
		delete(m.sessions, sess.Name)
	}
	infos := m.sessionInfosLocked()
	m.mu.Unlock()

	if err := m.sessionRepo.MarkExited(context.Background(), sess.ID, st.Code, time.Now().UTC()); err != nil {
		slog.Warn("failed to record session exit", "session", sess.Name, "error", err)
	}
	if st.Err != nil {
		slog.Info("session exited", "session", sess.Name, "code", st.Code, "error", st.Err)
	} else {
		slog.Info("session exited", "session", sess.Name, "code", st.Code)
	}
	if m.hub != nil {
		m.hub.BroadcastSessionStatus(sess.ID, sess.Name, "exited", false)
		m.hub.BroadcastSessions(infos)
	}
}

// pumpEvents forwards surface output to the hub as classified entries plus
// the current partial line. It drains until the surface's event channel
// closes after exit.
func (m *Manager) pumpEvents(sess *Session) {
	var lastSeq uint64
	var lastPending string
	for ev := range sess.Surface.Events() {
		if ev.Type != surface.EventOutput || m.hub == nil {
			continue
		}
		entries := sess.Surface.Output(lastSeq + 1)
		if len(entries) > 0 {
			lastSeq = entries[len(entries)-1].Seq
		}
		pending := sess.Surface.Pending()
		if len(entries) == 0 && pending == lastPending {
			continue
		}
		lastPending = pending
		m.hub.BroadcastOutput(hub.OutputMessage{
			Type:      "output",
			SessionID: sess.ID,
			Name:      sess.Name,
			Entries:   toHubEntries(entries),
			Pending:   pending,
			AtPrompt:  sess.Surface.AtPrompt(),
		})
	}
}

// Get returns the live session under a name.
func (m *Manager) Get(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return sess, nil
}

// Resolve finds a live session by name or, failing that, by id.
func (m *Manager) Resolve(nameOrID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[nameOrID]; ok {
		return sess, nil
	}
	for _, sess := range m.sessions {
		if sess.ID == nameOrID {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, nameOrID)
}

// List returns the live sessions, newest first.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SendInput submits one line to the session and records it in the input
// ledger. A ledger failure does not undo input that already reached the
// process; it is logged instead.
func (m *Manager) SendInput(ctx context.Context, nameOrID, line string) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}
	if err := sess.Surface.SubmitLine(line); err != nil {
		return err
	}
	input := &db.Input{SessionID: sess.ID, Line: line, SubmittedAt: time.Now().UTC()}
	if err := m.inputRepo.Append(ctx, input); err != nil {
		slog.Warn("failed to record input", "session", sess.Name, "error", err)
	}
	return nil
}

// SendKey sends a named key (Enter, C-c, up) to the session.
func (m *Manager) SendKey(nameOrID, key string) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}
	return sess.Surface.SendKey(key)
}

// SendSignal delivers a named signal: int, term, kill, or hup. Interrupts
// go through the PTY so the REPL sees ^C the way a terminal would deliver
// it.
func (m *Manager) SendSignal(ctx context.Context, nameOrID, signal string) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(signal)) {
	case "int", "sigint", "interrupt":
		return sess.Surface.Interrupt()
	case "term", "sigterm", "":
		return sess.Surface.Signal(syscall.SIGTERM)
	case "kill", "sigkill":
		return sess.Surface.Signal(syscall.SIGKILL)
	case "hup", "sighup":
		return sess.Surface.Signal(syscall.SIGHUP)
	default:
		return fmt.Errorf("unknown signal %q", signal)
	}
}

// Resize changes the session's PTY window size.
func (m *Manager) Resize(nameOrID string, cols, rows int) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}
	return sess.Surface.Resize(uint16(cols), uint16(rows))
}

// Output returns the session's scrollback from a sequence number on.
func (m *Manager) Output(nameOrID string, since uint64) (OutputSnapshot, error) {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return OutputSnapshot{}, err
	}
	return OutputSnapshot{
		Entries:  sess.Surface.Output(since),
		Pending:  sess.Surface.Pending(),
		AtPrompt: sess.Surface.AtPrompt(),
		Alive:    sess.Surface.Alive(),
	}, nil
}

// Inputs returns the ledger of lines submitted to the session.
func (m *Manager) Inputs(ctx context.Context, nameOrID string, limit int) ([]*db.Input, error) {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return nil, err
	}
	return m.inputRepo.ListBySession(ctx, sess.ID, limit)
}

// Stop asks the session's process to exit and leaves the surface intact, so
// the exit hook still flushes history. The registry entry is reaped when the
// process actually dies.
func (m *Manager) Stop(ctx context.Context, nameOrID string) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}
	return sess.Surface.Terminate()
}

// Destroy tears the surface down first, then kills the process. No history
// is flushed on this path.
func (m *Manager) Destroy(ctx context.Context, nameOrID string) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if cur, ok := m.sessions[sess.Name]; ok && cur == sess {
		delete(m.sessions, sess.Name)
	}
	infos := m.sessionInfosLocked()
	m.mu.Unlock()

	err = sess.Surface.Destroy()
	if m.hub != nil {
		m.hub.BroadcastSessions(infos)
	}
	return err
}

// SaveHistory flushes the session's history ring on demand.
func (m *Manager) SaveHistory(ctx context.Context, nameOrID string) error {
	sess, err := m.Resolve(nameOrID)
	if err != nil {
		return err
	}
	return sess.Surface.SaveHistory()
}

// Close stops every live session and waits briefly for exits, so shutdown
// drains through the normal exit path and history persists. Sessions still
// running after the grace period get a last flush and a teardown.
func (m *Manager) Close() {
	if m == nil {
		return
	}

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.Surface.Terminate()
	}

	deadline := time.Now().Add(closeGrace)
	for _, sess := range sessions {
		for sess.Surface.Alive() && time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
		}
		if sess.Surface.Alive() {
			slog.Warn("session did not exit in time, tearing down", "session", sess.Name)
			m.WriteHistoryOnExit(sess)
			_ = sess.Surface.Destroy()
		}
	}
}

func (m *Manager) sessionInfosLocked() []hub.SessionInfo {
	infos := make([]hub.SessionInfo, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, hub.SessionInfo{
			ID:       sess.ID,
			Name:     sess.Name,
			Profile:  sess.Profile,
			Status:   "running",
			AtPrompt: sess.Surface.AtPrompt(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func toHubEntries(entries []surface.Entry) []hub.OutputEntry {
	out := make([]hub.OutputEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, hub.OutputEntry{
			Seq:   e.Seq,
			Text:  e.Text,
			Class: string(e.Class),
			Ts:    e.Time.UnixMilli(),
		})
	}
	return out
}

// expandPath resolves a leading ~ against the user's home directory. Empty
// stays empty; an unresolvable home leaves the path as written.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
