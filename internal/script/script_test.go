package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistryCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if r.Get("smoke") == nil {
		t.Fatalf("expected smoke script")
	}
	if r.Get("warmup") == nil {
		t.Fatalf("expected warmup script")
	}
	for _, name := range []string{"smoke.yaml", "warmup.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s file missing: %v", name, err)
		}
	}

	smoke := r.Get("smoke")
	if len(smoke.Steps) == 0 {
		t.Fatalf("smoke script has no steps")
	}
	if smoke.Profile != "reply" {
		t.Fatalf("smoke profile = %q, want reply", smoke.Profile)
	}
}

func TestNewRegistryLeavesPopulatedDirAlone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(`
id: custom
name: Custom
steps:
  - send: print 1
`), 0o644); err != nil {
		t.Fatalf("write custom.yaml: %v", err)
	}

	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if r.Get("custom") == nil {
		t.Fatalf("expected custom script")
	}
	if r.Get("smoke") != nil {
		t.Fatalf("defaults written into a dir that already had scripts")
	}
}

func TestSaveDeleteReload(t *testing.T) {
	r, err := NewRegistry(filepath.Join(t.TempDir(), "scripts"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	custom := &Script{
		ID:   "custom-script",
		Name: "Custom Script",
		Steps: []Step{
			{WaitPrompt: "5s"},
			{Send: "print 42"},
		},
	}
	if err := r.Save(custom); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := r.Get("custom-script"); got == nil || got.Name != "Custom Script" {
		t.Fatalf("Get(custom-script) = %#v", got)
	}

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := r.Get("custom-script"); got == nil {
		t.Fatalf("saved script lost on reload")
	}

	if err := r.Delete("custom-script"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := r.Get("custom-script"); got != nil {
		t.Fatalf("expected deleted script, got %#v", got)
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	r, err := NewRegistry(filepath.Join(t.TempDir(), "scripts"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	err = r.Delete("missing-script")
	if err == nil {
		t.Fatalf("Delete() error = nil, want not found")
	}
	if !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("Delete() error = %v, want ErrScriptNotFound", err)
	}
}

func TestSaveRejectsBadScripts(t *testing.T) {
	r, err := NewRegistry(filepath.Join(t.TempDir(), "scripts"))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tests := []struct {
		name   string
		script *Script
	}{
		{"nil script", nil},
		{"bad id", &Script{ID: "Bad_ID", Name: "X", Steps: []Step{{Send: "x"}}}},
		{"missing name", &Script{ID: "ok-id", Steps: []Step{{Send: "x"}}}},
		{"no steps", &Script{ID: "ok-id", Name: "X"}},
		{"empty step", &Script{ID: "ok-id", Name: "X", Steps: []Step{{}}}},
		{"both fields", &Script{ID: "ok-id", Name: "X", Steps: []Step{{Send: "x", WaitPrompt: "5s"}}}},
		{"bad duration", &Script{ID: "ok-id", Name: "X", Steps: []Step{{WaitPrompt: "soon"}}}},
		{"negative duration", &Script{ID: "ok-id", Name: "X", Steps: []Step{{WaitPrompt: "-1s"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Save(tt.script)
			if err == nil {
				t.Fatalf("Save() error = nil, want invalid")
			}
			if !errors.Is(err, ErrInvalidScript) {
				t.Fatalf("Save() error = %v, want ErrInvalidScript", err)
			}
		})
	}
}

func TestLoadInfersIDFromFilename(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "adhoc.yaml"), []byte(`
name: Ad Hoc
steps:
  - send: print "hi"
`), 0o644); err != nil {
		t.Fatalf("write adhoc.yaml: %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	got := r.Get("adhoc")
	if got == nil {
		t.Fatalf("expected adhoc script after reload")
	}
	if got.ID != "adhoc" {
		t.Fatalf("id = %q, want adhoc", got.ID)
	}
}
