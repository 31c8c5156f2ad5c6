package surface

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nverno/inf-perl/internal/history"
	"github.com/nverno/inf-perl/internal/parser"
)

// TestSurfaceSpawnAndOutput spawns "echo hello-surface", collects events
// until EventExit, and verifies the accumulated output contains the text.
func TestSurfaceSpawnAndOutput(t *testing.T) {
	s, err := Start(Config{ID: "t-echo", Name: "echo-test", Program: "echo", Args: []string{"hello-surface"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	var output strings.Builder
	timeout := time.After(5 * time.Second)

	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				goto done
			}
			if ev.Type == EventOutput {
				output.WriteString(ev.Data)
			}
			if ev.Type == EventExit {
				goto done
			}
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}

done:
	if !strings.Contains(output.String(), "hello-surface") {
		t.Errorf("expected output to contain %q, got %q", "hello-surface", output.String())
	}
}

// TestSurfacePromptTracking runs a shell that prints two lines and then a
// bare prompt with no trailing newline, and verifies the completed lines
// land in scrollback while the prompt stays pending with AtPrompt set.
func TestSurfacePromptTracking(t *testing.T) {
	cl := parser.NewClassifier(parser.PromptReplyPattern, nil)
	s, err := Start(Config{
		ID:         "t-prompt",
		Name:       "prompt-test",
		Program:    "sh",
		Args:       []string{"-c", `echo one; echo two; printf "1> "; sleep 5`},
		Classifier: cl,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	deadline := time.Now().Add(5 * time.Second)
	for !s.AtPrompt() {
		if time.Now().After(deadline) {
			t.Fatalf("never reached prompt; pending=%q", s.Pending())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := s.Pending(); got != "1> " {
		t.Errorf("Pending() = %q, want %q", got, "1> ")
	}

	entries := s.Output(0)
	if len(entries) != 2 {
		t.Fatalf("Output(0) returned %d entries, want 2: %+v", len(entries), entries)
	}
	for i, want := range []string{"one", "two"} {
		if entries[i].Text != want {
			t.Errorf("entry %d text = %q, want %q", i, entries[i].Text, want)
		}
		if entries[i].Class != parser.ClassOutput {
			t.Errorf("entry %d class = %v, want output", i, entries[i].Class)
		}
	}

	// Incremental fetch: everything past the first line.
	rest := s.Output(entries[0].Seq + 1)
	if len(rest) != 1 || rest[0].Text != "two" {
		t.Errorf("Output(since) = %+v, want just the second line", rest)
	}
}

// TestSurfaceSubmitLineHistory feeds lines to "cat" and checks the history
// ring: blanks are skipped, consecutive duplicates collapse, and the echoed
// text comes back as output.
func TestSurfaceSubmitLineHistory(t *testing.T) {
	s, err := Start(Config{ID: "t-hist", Name: "hist-test", Program: "cat"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	for _, line := range []string{"print 1", "print 1", "", "print 2"} {
		if err := s.SubmitLine(line); err != nil {
			t.Fatalf("SubmitLine(%q): %v", line, err)
		}
	}

	got := s.History().Lines()
	want := []string{"print 1", "print 2"}
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	var output strings.Builder
	timeout := time.After(5 * time.Second)
	for !strings.Contains(output.String(), "print 2") {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("events closed early; output=%q", output.String())
			}
			if ev.Type == EventOutput {
				output.WriteString(ev.Data)
			}
		case <-timeout:
			t.Fatalf("timed out; output=%q", output.String())
		}
	}
}

// TestSurfaceHistoryRingConfig passes a caller-built two-slot ring and
// verifies submitted lines land in that ring, oldest dropped past capacity.
func TestSurfaceHistoryRingConfig(t *testing.T) {
	ring := history.NewRing(2, true)
	s, err := Start(Config{ID: "t-ring", Name: "ring-test", Program: "cat", History: ring})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	if s.History() != ring {
		t.Fatal("History() did not return the configured ring")
	}
	for _, line := range []string{"print 1", "print 2", "print 3"} {
		if err := s.SubmitLine(line); err != nil {
			t.Fatalf("SubmitLine(%q): %v", line, err)
		}
	}

	got := ring.Lines()
	want := []string{"print 2", "print 3"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ring = %v, want %v", got, want)
	}
}

// TestSurfaceExitHooksRunOnce registers two exit hooks on a process that
// exits with status 3, and verifies each runs exactly once with the right
// code. A hook registered after exit runs immediately.
func TestSurfaceExitHooksRunOnce(t *testing.T) {
	s, err := Start(Config{ID: "t-hooks", Name: "hooks-test", Program: "sh", Args: []string{"-c", "exit 3"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	var calls atomic.Int32
	var gotCode atomic.Int32
	s.OnExit(func(st ExitState) {
		calls.Add(1)
		gotCode.Store(int32(st.Code))
	})
	s.OnExit(func(ExitState) { calls.Add(1) })

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatal("events closed without exit event")
			}
			if ev.Type == EventExit {
				if ev.State.Code != 3 {
					t.Errorf("exit code = %d, want 3", ev.State.Code)
				}
				goto exited
			}
		case <-timeout:
			t.Fatal("timed out waiting for exit")
		}
	}

exited:
	if n := calls.Load(); n != 2 {
		t.Errorf("hooks ran %d times, want 2", n)
	}
	if gotCode.Load() != 3 {
		t.Errorf("hook saw code %d, want 3", gotCode.Load())
	}

	// Late registration fires synchronously with the stored state.
	var late atomic.Int32
	s.OnExit(func(st ExitState) {
		if st.Code == 3 {
			late.Add(1)
		}
	})
	if late.Load() != 1 {
		t.Error("hook registered after exit did not run immediately")
	}
}

// TestSurfaceSaveHistory writes the ring to the configured file while the
// surface is intact, and verifies the file holds one line per record.
func TestSurfaceSaveHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	s, err := Start(Config{ID: "t-save", Name: "save-test", Program: "cat", HistoryFile: path})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	s.SubmitLine("print 1")
	s.SubmitLine("print 2")

	if err := s.SaveHistory(); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read history file: %v", err)
	}
	if string(data) != "print 1\nprint 2\n" {
		t.Errorf("history file = %q, want %q", data, "print 1\nprint 2\n")
	}
}

// TestSurfaceSaveHistoryAfterDestroy verifies that once the surface is
// destroyed, SaveHistory is a silent no-op and the file never appears.
func TestSurfaceSaveHistoryAfterDestroy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	s, err := Start(Config{ID: "t-noop", Name: "noop-test", Program: "cat", HistoryFile: path})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.SubmitLine("print 1")
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if err := s.SaveHistory(); err != nil {
		t.Errorf("SaveHistory after Destroy: %v, want nil", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("history file exists after destroyed save, stat err = %v", err)
	}

	// Second destroy must not panic.
	if err := s.Destroy(); err != nil {
		t.Logf("second Destroy returned: %v", err)
	}
}

// TestSurfaceWriteAfterDestroy verifies input paths reject a destroyed
// surface.
func TestSurfaceWriteAfterDestroy(t *testing.T) {
	s, err := Start(Config{ID: "t-dead", Name: "dead-test", Program: "cat"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Destroy()

	if err := s.SubmitLine("print 1"); err != ErrDestroyed {
		t.Errorf("SubmitLine after Destroy = %v, want ErrDestroyed", err)
	}
	if err := s.Write([]byte("x")); err != ErrDestroyed {
		t.Errorf("Write after Destroy = %v, want ErrDestroyed", err)
	}
}

// TestSurfaceStartfile spawns "cat" with a startfile and verifies its
// contents are fed through as initial input. A missing startfile fails the
// start before anything is spawned.
func TestSurfaceStartfile(t *testing.T) {
	dir := t.TempDir()
	start := filepath.Join(dir, "startup.pl")
	if err := os.WriteFile(start, []byte("use strict;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Start(Config{ID: "t-seed", Name: "seed-test", Program: "cat", Startfile: start})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	var output strings.Builder
	timeout := time.After(5 * time.Second)
	for !strings.Contains(output.String(), "use strict;") {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("events closed early; output=%q", output.String())
			}
			if ev.Type == EventOutput {
				output.WriteString(ev.Data)
			}
		case <-timeout:
			t.Fatalf("timed out; output=%q", output.String())
		}
	}

	if _, err := Start(Config{ID: "t-noseed", Program: "cat", Startfile: filepath.Join(dir, "absent.pl")}); err == nil {
		t.Error("Start with missing startfile succeeded, want error")
	}
}

// TestSurfaceResize spawns "sleep 10", calls Resize(200, 50), and verifies
// no error.
func TestSurfaceResize(t *testing.T) {
	s, err := Start(Config{ID: "t-resize", Name: "resize-test", Program: "sleep", Args: []string{"10"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	if err := s.Resize(200, 50); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := s.SendKey("enter"); err != nil {
		t.Fatalf("SendKey(enter): %v", err)
	}
}

// TestMapNamedKey covers the key-name translation table.
func TestMapNamedKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"enter", "\r"},
		{"Enter", "\r"},
		{"C-c", "\x03"},
		{"c-d", "\x04"},
		{"tab", "\t"},
		{"esc", "\x1b"},
		{"escape", "\x1b"},
		{"up", "\x1b[A"},
		{"down", "\x1b[B"},
		{"x", "x"},
	}
	for _, tt := range tests {
		result := mapNamedKey(tt.key)
		if result != tt.expected {
			t.Errorf("mapNamedKey(%q) = %q, want %q", tt.key, result, tt.expected)
		}
	}
}

// TestSurfaceTerminate asks a long-running process to exit via SIGTERM and
// verifies the surface reports it dead but not destroyed.
func TestSurfaceTerminate(t *testing.T) {
	s, err := Start(Config{ID: "t-term", Name: "term-test", Program: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	if err := s.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatal("events closed without exit event")
			}
			if ev.Type == EventExit {
				if ev.State.Code != -1 {
					t.Errorf("signal death exit code = %d, want -1", ev.State.Code)
				}
				goto exited
			}
		case <-timeout:
			t.Fatal("timed out waiting for exit")
		}
	}

exited:
	if s.Alive() {
		t.Error("Alive() = true after exit")
	}
	if s.Destroyed() {
		t.Error("Destroyed() = true after plain termination")
	}
}

// TestSurfaceExitWithLingeringGrandchild exits the child while a background
// grandchild ignores HUP, keeps the slave side open past the drain grace,
// and writes afterwards. The exit event must still arrive, the channel must
// close, and the late write must not disturb the process.
func TestSurfaceExitWithLingeringGrandchild(t *testing.T) {
	s, err := Start(Config{
		ID:      "t-linger",
		Name:    "linger-test",
		Program: "sh",
		Args:    []string{"-c", `trap '' HUP; (sleep 3; echo late) & exit 0`},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Destroy()

	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatal("events closed without exit event")
			}
			if ev.Type == EventExit {
				if ev.State.Code != 0 {
					t.Errorf("exit code = %d, want 0", ev.State.Code)
				}
				goto exited
			}
		case <-timeout:
			t.Fatal("timed out waiting for exit")
		}
	}

exited:
	if _, ok := <-s.Events(); ok {
		t.Error("events stayed open after exit event")
	}
	// Outlive the grandchild's write; a stray send to the closed event
	// channel would crash the binary here.
	time.Sleep(1500 * time.Millisecond)
	if s.Alive() {
		t.Error("Alive() = true after exit")
	}
}
