package surface

import "strings"

// SendKey translates a named key (e.g. "Enter", "C-c") to its byte sequence
// and writes it to the process.
func (s *Surface) SendKey(key string) error {
	return s.Write([]byte(mapNamedKey(key)))
}

// mapNamedKey translates a human-readable key name to its terminal byte
// sequence. Unknown names are returned as-is.
func mapNamedKey(key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "enter":
		return "\r"
	case "c-c":
		return "\x03"
	case "c-d":
		return "\x04"
	case "c-z":
		return "\x1a"
	case "c-l":
		return "\x0c"
	case "escape", "esc":
		return "\x1b"
	case "tab":
		return "\t"
	case "backspace":
		return "\x7f"
	case "up":
		return "\x1b[A"
	case "down":
		return "\x1b[B"
	case "right":
		return "\x1b[C"
	case "left":
		return "\x1b[D"
	default:
		return key
	}
}
