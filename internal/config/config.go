// Package config loads service configuration: defaults, then the config
// file, then explicit overrides from command-line flags.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	Port           int
	Token          string
	DataDir        string
	ProfileDir     string
	ScriptDir      string
	DefaultProfile string
	ConfigPath     string
	PrintToken     bool
}

// Overrides carries flag-bound values. Zero values leave the file and
// default settings in place.
type Overrides struct {
	Port           int
	Token          string
	DataDir        string
	ProfileDir     string
	ScriptDir      string
	DefaultProfile string
	ConfigPath     string
	PrintToken     bool
}

func Load(ov Overrides) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	cfg := &Config{
		Port:           7678,
		DataDir:        filepath.Join(homeDir, ".local", "share", "inf-perl"),
		ProfileDir:     filepath.Join(homeDir, ".config", "inf-perl", "profiles"),
		ScriptDir:      filepath.Join(homeDir, ".config", "inf-perl", "scripts"),
		DefaultProfile: "reply",
		ConfigPath:     filepath.Join(homeDir, ".config", "inf-perl", "config"),
	}
	if ov.ConfigPath != "" {
		cfg.ConfigPath = ov.ConfigPath
	}

	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg.apply(ov)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.Port)
	}
	if cfg.DefaultProfile == "" {
		return nil, fmt.Errorf("default profile must not be empty")
	}

	if cfg.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token: %w", err)
		}
		cfg.Token = token
		if err := cfg.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	return cfg, nil
}

// DBPath is the SQLite ledger location under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "inf-perl.db")
}

// HistoryDir is the default directory for input history files.
func (c *Config) HistoryDir() string {
	return filepath.Join(c.DataDir, "history")
}

func (c *Config) apply(ov Overrides) {
	if ov.Port != 0 {
		c.Port = ov.Port
	}
	if ov.Token != "" {
		c.Token = ov.Token
	}
	if ov.DataDir != "" {
		c.DataDir = ov.DataDir
	}
	if ov.ProfileDir != "" {
		c.ProfileDir = ov.ProfileDir
	}
	if ov.ScriptDir != "" {
		c.ScriptDir = ov.ScriptDir
	}
	if ov.DefaultProfile != "" {
		c.DefaultProfile = ov.DefaultProfile
	}
	if ov.PrintToken {
		c.PrintToken = true
	}
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "Token":
			c.Token = value
		case "Port":
			var port int
			if _, err := fmt.Sscanf(value, "%d", &port); err != nil {
				return fmt.Errorf("invalid Port value %q: %w", value, err)
			}
			c.Port = port
		case "DataDir":
			c.DataDir = expandHome(value)
		case "ProfileDir":
			c.ProfileDir = expandHome(value)
		case "ScriptDir":
			c.ScriptDir = expandHome(value)
		case "DefaultProfile":
			c.DefaultProfile = value
		}
	}
	return nil
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data := fmt.Sprintf("Port=%d\nDataDir=%s\nProfileDir=%s\nScriptDir=%s\nDefaultProfile=%s\nToken=%s\n",
		c.Port, c.DataDir, c.ProfileDir, c.ScriptDir, c.DefaultProfile, c.Token)
	return os.WriteFile(c.ConfigPath, []byte(data), 0600)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
