package parser

// Class labels one line of REPL output.
type Class string

const (
	ClassOutput       Class = "output"
	ClassPrompt       Class = "prompt"
	ClassContinuation Class = "continuation"
	ClassError        Class = "error"
)
