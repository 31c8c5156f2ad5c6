package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inf-perl-test.db")
	database, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
	return database, path
}

func assertTableExists(t *testing.T, conn *sql.DB, table string) {
	t.Helper()
	var count int
	err := conn.QueryRow(`SELECT count(1) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master error: %v", err)
	}
	if count != 1 {
		t.Fatalf("table %q not found", table)
	}
}

func TestOpenCreatesDBFileAndRunsMigrations(t *testing.T) {
	database, path := openTestDB(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected DB file at %q: %v", path, err)
	}

	assertTableExists(t, database.SQL(), "_meta")
	assertTableExists(t, database.SQL(), "sessions")
	assertTableExists(t, database.SQL(), "inputs")
	assertTableExists(t, database.SQL(), "settings")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	database, _ := openTestDB(t)

	if err := RunMigrations(context.Background(), database.SQL()); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var version string
	if err := database.SQL().QueryRow(`SELECT value FROM _meta WHERE key='schema_version'`).Scan(&version); err != nil {
		t.Fatalf("read schema version error = %v", err)
	}
	if version != "2" {
		t.Fatalf("schema version = %s, want 2", version)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("Open(\"\") should fail")
	}
}

// TestOpenAppliesPragmas checks the connection settings survive to query
// time; the pool is pinned to one connection, so reading them back hits the
// same connection Open configured.
func TestOpenAppliesPragmas(t *testing.T) {
	database, _ := openTestDB(t)

	var fk int
	if err := database.SQL().QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("read foreign_keys error = %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var busy int
	if err := database.SQL().QueryRow(`PRAGMA busy_timeout`).Scan(&busy); err != nil {
		t.Fatalf("read busy_timeout error = %v", err)
	}
	if busy != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", busy)
	}
}

func TestSessionRepoLifecycle(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepo(database.SQL())

	s := &Session{
		Name:        "perl",
		Profile:     "reply",
		Command:     "reply ",
		HistoryFile: "/tmp/reply_history",
		Status:      "running",
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" {
		t.Fatal("Create() left ID empty")
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Name != "perl" || got.Command != "reply " || got.HistoryFile != "/tmp/reply_history" {
		t.Fatalf("Get() = %#v", got)
	}
	if !got.ExitedAt.IsZero() {
		t.Fatalf("new session has exited_at %v", got.ExitedAt)
	}

	byName, err := repo.GetByName(ctx, "perl")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if byName == nil || byName.ID != s.ID {
		t.Fatalf("GetByName() = %#v", byName)
	}

	if err := repo.UpdateStatus(ctx, s.ID, "running"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	exitedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkExited(ctx, s.ID, 1, exitedAt); err != nil {
		t.Fatalf("MarkExited() error = %v", err)
	}
	got, err = repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() after exit error = %v", err)
	}
	if got.Status != "exited" || got.ExitStatus != 1 || !got.ExitedAt.Equal(exitedAt) {
		t.Fatalf("after MarkExited: %#v", got)
	}

	if err := repo.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err = repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if got != nil {
		t.Fatalf("expected deleted session, got %#v", got)
	}
}

func TestSessionRepoGetMissing(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewSessionRepo(database.SQL())

	got, err := repo.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get(absent) = %#v, want nil", got)
	}
}

func TestSessionRepoList(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepo(database.SQL())

	for i, name := range []string{"one", "two", "three"} {
		s := &Session{
			Name:      name,
			Command:   "reply ",
			Status:    "running",
			CreatedAt: time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
		}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}
	if err := repo.UpdateStatus(ctx, mustGetByName(t, repo, "one").ID, "exited"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	all, err := repo.List(ctx, SessionFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(all))
	}
	if all[0].Name != "three" {
		t.Fatalf("List() not newest first: %s", all[0].Name)
	}

	running, err := repo.List(ctx, SessionFilter{Status: "running"})
	if err != nil {
		t.Fatalf("List(running) error = %v", err)
	}
	if len(running) != 2 {
		t.Fatalf("len(List(running)) = %d, want 2", len(running))
	}

	limited, err := repo.List(ctx, SessionFilter{Limit: 1})
	if err != nil {
		t.Fatalf("List(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("len(List(limit=1)) = %d, want 1", len(limited))
	}
}

func mustGetByName(t *testing.T, repo *SessionRepo, name string) *Session {
	t.Helper()
	s, err := repo.GetByName(context.Background(), name)
	if err != nil {
		t.Fatalf("GetByName(%s) error = %v", name, err)
	}
	if s == nil {
		t.Fatalf("GetByName(%s) = nil", name)
	}
	return s
}

func TestInputRepoAppendAndList(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepo(database.SQL())
	inputs := NewInputRepo(database.SQL())

	s := &Session{Name: "perl", Command: "reply ", Status: "running"}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, line := range []string{"1+1", `print "hi\n"`, "exit"} {
		if err := inputs.Append(ctx, &Input{SessionID: s.ID, Line: line}); err != nil {
			t.Fatalf("Append(%q) error = %v", line, err)
		}
	}

	got, err := inputs.ListBySession(ctx, s.ID, 0)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(ListBySession()) = %d, want 3", len(got))
	}
	if got[0].Line != "1+1" || got[2].Line != "exit" {
		t.Fatalf("inputs not oldest first: %q ... %q", got[0].Line, got[2].Line)
	}

	n, err := inputs.CountBySession(ctx, s.ID)
	if err != nil {
		t.Fatalf("CountBySession() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("CountBySession() = %d, want 3", n)
	}
}

func TestInputRepoCascadeDelete(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()
	sessions := NewSessionRepo(database.SQL())
	inputs := NewInputRepo(database.SQL())

	s := &Session{Name: "perl", Command: "reply ", Status: "running"}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := inputs.Append(ctx, &Input{SessionID: s.ID, Line: "1+1"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := sessions.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := inputs.CountBySession(ctx, s.ID)
	if err != nil {
		t.Fatalf("CountBySession() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("CountBySession() after cascade = %d, want 0", n)
	}
}

func TestSettingsRepo(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepo(database.SQL())

	if v, err := repo.Get(ctx, "default_profile"); err != nil || v != "" {
		t.Fatalf("Get(missing) = %q, %v", v, err)
	}

	if err := repo.Set(ctx, "default_profile", "reply"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(ctx, "default_profile", "pdl"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	v, err := repo.Get(ctx, "default_profile")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "pdl" {
		t.Fatalf("Get() = %q, want %q", v, "pdl")
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 || all["default_profile"] != "pdl" {
		t.Fatalf("All() = %#v", all)
	}
}
