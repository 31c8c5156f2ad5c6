package profile

import (
	"fmt"
	"regexp"

	"github.com/nverno/inf-perl/internal/command"
	"github.com/nverno/inf-perl/internal/parser"
)

// Profile describes one way of launching a Perl REPL: the program (literal
// or produced by a command), its arguments, the prompt shape of its output,
// and the optional startfile and history file. Everything is externally
// settable through the profile directory.
type Profile struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Program        string   `yaml:"program,omitempty" json:"program,omitempty"`
	ProgramCommand string   `yaml:"program_command,omitempty" json:"program_command,omitempty"`
	Args           []string `yaml:"args" json:"args"`
	Prompt         string   `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Continuation   string   `yaml:"continuation,omitempty" json:"continuation,omitempty"`
	Startfile      string   `yaml:"startfile,omitempty" json:"startfile,omitempty"`
	HistoryFile    string   `yaml:"history_file,omitempty" json:"history_file,omitempty"`
	HistorySize    int      `yaml:"history_size,omitempty" json:"history_size,omitempty"`
	HistoryNoDups  *bool    `yaml:"history_ignore_dups,omitempty" json:"history_ignore_dups,omitempty"`
	Env            []string `yaml:"env,omitempty" json:"env,omitempty"`
	Dir            string   `yaml:"dir,omitempty" json:"dir,omitempty"`
	Notes          string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Source returns the program source for command building, the literal
// program name or the configured program command evaluated at build time.
func (p *Profile) Source() command.Source {
	if p.ProgramCommand != "" {
		return command.ShellProvider(p.ProgramCommand)
	}
	return command.Literal(p.Program)
}

// Classifier compiles the profile's prompt and continuation patterns into an
// output classifier. Empty patterns fall back to the generic defaults.
func (p *Profile) Classifier() (*parser.Classifier, error) {
	prompt := parser.PromptDefaultPattern
	if p.Prompt != "" {
		re, err := regexp.Compile(p.Prompt)
		if err != nil {
			return nil, fmt.Errorf("profile %s prompt: %w", p.ID, err)
		}
		prompt = re
	}
	var continuation *regexp.Regexp
	if p.Continuation != "" {
		re, err := regexp.Compile(p.Continuation)
		if err != nil {
			return nil, fmt.Errorf("profile %s continuation: %w", p.ID, err)
		}
		continuation = re
	}
	return parser.NewClassifier(prompt, continuation), nil
}

// HistoryDedup reports whether consecutive duplicate inputs are suppressed.
// Unset means suppressed.
func (p *Profile) HistoryDedup() bool {
	if p.HistoryNoDups == nil {
		return true
	}
	return *p.HistoryNoDups
}
