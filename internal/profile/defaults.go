package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nverno/inf-perl/configs"
)

var defaultProfileFiles = []string{
	"reply.yaml",
	"devel-repl.yaml",
	"perl-debugger.yaml",
	"pdl.yaml",
}

// ensureDefaults seeds an empty profile dir with the shipped REPL profiles.
// A dir that already holds any YAML file is left alone.
func ensureDefaults(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read profile dir: %w", err)
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

	for _, file := range defaultProfileFiles {
		content, err := configs.ProfileDefaults.ReadFile(filepath.Join("profiles", file))
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
