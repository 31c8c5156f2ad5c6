// Package script stores and replays canned input sequences. A script is a
// YAML file of steps, each either a line to send or a bounded wait for the
// session's next prompt. Scripts live one per file in a directory next to
// the profiles.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nverno/inf-perl/configs"
	"gopkg.in/yaml.v3"
)

var scriptIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	ErrInvalidScript  = errors.New("invalid script")
	ErrScriptStorage  = errors.New("script storage error")
	ErrScriptNotFound = errors.New("script not found")
)

type Registry struct {
	dir     string
	scripts map[string]*Script
	mu      sync.RWMutex
}

func NewRegistry(dir string) (*Registry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("scripts dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	if err := ensureDefaults(dir); err != nil {
		return nil, err
	}

	r := &Registry{dir: dir, scripts: make(map[string]*Script)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Get(id string) *Script {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sc, ok := r.scripts[id]
	if !ok {
		return nil
	}
	return clone(sc)
}

func (r *Registry) List() []*Script {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Script, 0, len(r.scripts))
	for _, sc := range r.scripts {
		result = append(result, clone(sc))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func (r *Registry) Reload() error {
	loaded, err := loadDir(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.scripts = loaded
	r.mu.Unlock()
	return nil
}

func (r *Registry) Save(sc *Script) error {
	if sc == nil {
		return fmt.Errorf("%w: script is required", ErrInvalidScript)
	}
	clean := clone(sc)
	if err := normalizeAndValidate(clean); err != nil {
		return err
	}

	data, err := yaml.Marshal(clean)
	if err != nil {
		return fmt.Errorf("%w: marshal script: %v", ErrScriptStorage, err)
	}
	path := filepath.Join(r.dir, clean.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write script %q: %v", ErrScriptStorage, path, err)
	}

	r.mu.Lock()
	r.scripts[clean.ID] = clean
	r.mu.Unlock()
	return nil
}

func (r *Registry) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	deleted := false
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(r.dir, id+ext)
		err := os.Remove(path)
		if err == nil {
			deleted = true
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return fmt.Errorf("%w: delete script %q: %v", ErrScriptStorage, path, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, id)
	}

	r.mu.Lock()
	delete(r.scripts, id)
	r.mu.Unlock()
	return nil
}

func ensureDefaults(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read scripts dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			return nil
		}
	}

	for _, file := range []string{"smoke.yaml", "warmup.yaml"} {
		content, err := configs.ScriptDefaults.ReadFile(filepath.Join("scripts", file))
		if err != nil {
			return fmt.Errorf("read embedded default %q: %w", file, err)
		}
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write default %q: %w", path, err)
		}
	}
	return nil
}

func loadDir(dir string) (map[string]*Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}

	loaded := make(map[string]*Script)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		sc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if sc.ID == "" {
			sc.ID = strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(entry.Name()), ".yaml"), ".yml")
		}
		if _, exists := loaded[sc.ID]; exists {
			return nil, fmt.Errorf("duplicate script id %q", sc.ID)
		}
		if err := normalizeAndValidate(sc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		loaded[sc.ID] = sc
	}
	return loaded, nil
}

func loadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %q: %w", path, err)
	}
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse script %q: %w", path, err)
	}
	return &sc, nil
}

func normalizeAndValidate(sc *Script) error {
	if sc == nil {
		return fmt.Errorf("%w: script is required", ErrInvalidScript)
	}
	sc.ID = strings.TrimSpace(strings.ToLower(sc.ID))
	if err := validateID(sc.ID); err != nil {
		return err
	}
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScript)
	}
	sc.Description = strings.TrimSpace(sc.Description)
	sc.Profile = strings.TrimSpace(sc.Profile)

	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidScript)
	}
	for i := range sc.Steps {
		sc.Steps[i].WaitPrompt = strings.TrimSpace(sc.Steps[i].WaitPrompt)
		if err := validateStep(i, sc.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, s Step) error {
	switch {
	case s.Send != "" && s.WaitPrompt != "":
		return fmt.Errorf("%w: step[%d] sets both send and wait_prompt", ErrInvalidScript, i)
	case s.Send == "" && s.WaitPrompt == "":
		return fmt.Errorf("%w: step[%d] needs send or wait_prompt", ErrInvalidScript, i)
	case s.WaitPrompt != "":
		d, err := time.ParseDuration(s.WaitPrompt)
		if err != nil {
			return fmt.Errorf("%w: step[%d] wait_prompt: %v", ErrInvalidScript, i, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: step[%d] wait_prompt must be positive", ErrInvalidScript, i)
		}
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidScript)
	}
	if !scriptIDPattern.MatchString(id) {
		return fmt.Errorf("%w: id must be lowercase alphanumeric with hyphens", ErrInvalidScript)
	}
	return nil
}

func clone(sc *Script) *Script {
	if sc == nil {
		return nil
	}
	out := *sc
	out.Steps = append([]Step(nil), sc.Steps...)
	return &out
}
