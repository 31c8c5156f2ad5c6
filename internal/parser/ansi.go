package parser

import "regexp"

// Escape sequences stripped before prompt matching. REPLs color their
// prompts and readline redraws lines, so raw PTY output is full of these.
var ansiSequences []*regexp.Regexp

func init() {
	for _, expr := range []string{
		`\x1b\[[0-?]*[ -/]*[@-~]`,       // CSI
		`\x1b\].*?(?:\x07|\x1b\\)`,      // OSC
		`\x1b[P^_k].*?\x1b\\`,           // DCS, PM, APC, old title
		`\x1b[()][0-9A-Za-z]`,           // charset selection
		`\x1b[=>]`,                      // keypad modes
		`\x1b.`,                         // anything else escaped
	} {
		ansiSequences = append(ansiSequences, regexp.MustCompile(expr))
	}
}

// StripANSI removes escape sequences and control bytes, applying backspaces
// and dropping carriage returns so what remains is the text a user would see.
func StripANSI(s string) string {
	for _, re := range ansiSequences {
		s = re.ReplaceAllString(s, "")
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\r':
		case ch == '\b':
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case (ch < 0x20 || ch == 0x7f) && ch != '\n' && ch != '\t':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
