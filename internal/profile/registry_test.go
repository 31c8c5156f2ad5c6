package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistryCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	got := r.List()
	if len(got) < 4 {
		t.Fatalf("len(List()) = %d, want >= 4", len(got))
	}

	for _, id := range []string{"reply", "devel-repl", "perl-debugger", "pdl"} {
		if r.Get(id) == nil {
			t.Fatalf("expected default profile %q", id)
		}
		if _, err := os.Stat(filepath.Join(dir, id+".yaml")); err != nil {
			t.Fatalf("default file missing for %q: %v", id, err)
		}
	}
}

func TestNewRegistryKeepsExistingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	custom := "id: mine\nname: Mine\nprogram: reply\n"
	if err := os.WriteFile(filepath.Join(dir, "mine.yaml"), []byte(custom), 0o644); err != nil {
		t.Fatalf("write custom profile: %v", err)
	}

	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if r.Get("mine") == nil {
		t.Fatal("custom profile not loaded")
	}
	if r.Get("reply") != nil {
		t.Fatal("defaults written into a non-empty dir")
	}
}

func TestNewRegistryValidationFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\nprompt: '['\nprogram: reply\n"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}

	if _, err := NewRegistry(dir); err == nil {
		t.Fatal("expected validation error for bad prompt pattern")
	}
}

func TestRegistrySaveDeleteReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	custom := &Profile{
		ID:      "tinyrepl",
		Name:    "Tiny REPL",
		Program: "tinyrepl",
		Prompt:  `^>> `,
	}
	if err := r.Save(custom); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := r.Get("tinyrepl"); got == nil || got.Name != "Tiny REPL" {
		t.Fatalf("Get(tinyrepl) = %#v", got)
	}

	updated := "id: tinyrepl\nname: Updated\nprogram: tinyrepl\n"
	if err := os.WriteFile(filepath.Join(dir, "tinyrepl.yaml"), []byte(updated), 0o644); err != nil {
		t.Fatalf("overwrite file: %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := r.Get("tinyrepl"); got == nil || got.Name != "Updated" {
		t.Fatalf("after reload = %#v", got)
	}

	if err := r.Delete("tinyrepl"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := r.Get("tinyrepl"); got != nil {
		t.Fatalf("expected deleted profile, got %#v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       *Profile
		wantErr bool
	}{
		{name: "ok literal", p: &Profile{ID: "ok", Name: "OK", Program: "reply"}},
		{name: "ok provider", p: &Profile{ID: "ok", Name: "OK", ProgramCommand: "which reply"}},
		{name: "bad id", p: &Profile{ID: "Bad_ID", Name: "Bad", Program: "reply"}, wantErr: true},
		{name: "missing name", p: &Profile{ID: "x", Program: "reply"}, wantErr: true},
		{name: "missing program", p: &Profile{ID: "x", Name: "X"}, wantErr: true},
		{name: "both program forms", p: &Profile{ID: "x", Name: "X", Program: "reply", ProgramCommand: "which reply"}, wantErr: true},
		{name: "bad prompt pattern", p: &Profile{ID: "x", Name: "X", Program: "reply", Prompt: "["}, wantErr: true},
		{name: "bad env entry", p: &Profile{ID: "x", Name: "X", Program: "reply", Env: []string{"NOEQUALS"}}, wantErr: true},
		{name: "negative history size", p: &Profile{ID: "x", Name: "X", Program: "reply", HistorySize: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.p)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("validate() error %T is not a ValidationError", err)
			}
		})
	}
}

func TestProfileSource(t *testing.T) {
	lit := &Profile{ID: "x", Name: "X", Program: "reply"}
	prog, err := lit.Source().Program()
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if prog != "reply" {
		t.Errorf("Program = %q, want %q", prog, "reply")
	}

	prov := &Profile{ID: "x", Name: "X", ProgramCommand: "echo re.pl"}
	prog, err = prov.Source().Program()
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if prog != "re.pl" {
		t.Errorf("Program = %q, want %q", prog, "re.pl")
	}
}

func TestProfileClassifier(t *testing.T) {
	p := &Profile{ID: "reply", Name: "Reply", Program: "reply", Prompt: `^\d+> `}
	c, err := p.Classifier()
	if err != nil {
		t.Fatalf("Classifier: %v", err)
	}
	if !c.IsPrompt("0> ") {
		t.Error("classifier missed the reply prompt")
	}

	// Empty prompt falls back to the generic shape.
	generic := &Profile{ID: "x", Name: "X", Program: "someshell"}
	c, err = generic.Classifier()
	if err != nil {
		t.Fatalf("Classifier: %v", err)
	}
	if !c.IsPrompt("$ ") {
		t.Error("default classifier missed a shell-style prompt")
	}
}

func TestProfileHistoryDedup(t *testing.T) {
	p := &Profile{ID: "x", Name: "X", Program: "reply"}
	if !p.HistoryDedup() {
		t.Error("unset dedup should default to true")
	}
	off := false
	p.HistoryNoDups = &off
	if p.HistoryDedup() {
		t.Error("explicit false ignored")
	}
}
