package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TerminalEdit returns an EditFunc that prints the assembled line to out as a
// prompt default and reads one line from in. Empty input keeps the default.
func TerminalEdit(in io.Reader, out io.Writer) EditFunc {
	reader := bufio.NewReader(in)
	return func(assembled string) (string, error) {
		fmt.Fprintf(out, "Run Perl REPL [%s]: ", assembled)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return assembled, nil
		}
		return line, nil
	}
}
