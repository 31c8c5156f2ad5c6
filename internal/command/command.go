package command

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Source yields the program half of a launch command line. Profiles configure
// either a literal program name or a command evaluated once to produce one.
type Source interface {
	Program() (string, error)
}

// Literal is a program name used as-is.
type Literal string

func (l Literal) Program() (string, error) { return string(l), nil }

// Provider resolves the program at build time. It is invoked at most once per
// Build call and not at all when an override is present.
type Provider func() (string, error)

func (p Provider) Program() (string, error) { return p() }

// ShellProvider runs line through the shell and uses its trimmed stdout as
// the program.
func ShellProvider(line string) Source {
	return Provider(func() (string, error) {
		out, err := exec.Command("sh", "-c", line).Output()
		if err != nil {
			return "", fmt.Errorf("program command %q: %w", line, err)
		}
		prog := strings.TrimSpace(string(out))
		if prog == "" {
			return "", fmt.Errorf("program command %q produced no output", line)
		}
		return prog, nil
	})
}

// EditFunc presents an assembled command line to the user as an editable
// default and returns whatever they confirm.
type EditFunc func(assembled string) (string, error)

// Build assembles the launch command line. An override is returned verbatim
// and skips program resolution, the argument join, and the edit prompt.
// Otherwise the resolved program and arguments are joined with single spaces;
// an empty argument list leaves the trailing separator in place. The result
// is not validated here, a bad command line surfaces the launch error later.
func Build(src Source, args []string, edit EditFunc, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	prog, err := src.Program()
	if err != nil {
		return "", fmt.Errorf("resolve program: %w", err)
	}
	line := prog + " " + strings.Join(args, " ")
	if edit == nil {
		return line, nil
	}
	edited, err := edit(line)
	if err != nil {
		return "", fmt.Errorf("edit command: %w", err)
	}
	return edited, nil
}

// Split breaks a command line into program and arguments under shell-quoting
// rules, so quoted substrings stay single arguments. An empty line yields an
// empty program, left for the launch call to reject.
func Split(line string) (string, []string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, err
	}
	if len(words) == 0 {
		return "", nil, nil
	}
	return words[0], words[1:], nil
}

// Join quotes and joins words into a single command line for display.
func Join(words []string) string {
	return shellquote.Join(words...)
}
