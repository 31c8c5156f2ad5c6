package parser

import "regexp"

// Prompt shapes of the stock Perl REPLs, matched against the start of a line
// after ANSI stripping.
var (
	PromptReplyPattern    *regexp.Regexp
	PromptDevelPattern    *regexp.Regexp
	PromptDebuggerPattern *regexp.Regexp
	PromptPDLPattern      *regexp.Regexp
	PromptDefaultPattern  *regexp.Regexp

	ContinuationDefaultPattern *regexp.Regexp

	ErrorPattern *regexp.Regexp
)

func init() {
	PromptReplyPattern = regexp.MustCompile(`^\d+> `)
	PromptDevelPattern = regexp.MustCompile(`^\$ `)
	PromptDebuggerPattern = regexp.MustCompile(`^\s*DB<+\d+>+ `)
	PromptPDLPattern = regexp.MustCompile(`^pdl> `)
	PromptDefaultPattern = regexp.MustCompile(`^[^#$%>\n]*[#$%>] *`)
	ContinuationDefaultPattern = regexp.MustCompile(`^(?:\.\.\.|\*) `)
	ErrorPattern = regexp.MustCompile(`(?: at .+ line \d+\.?$)|(?:^syntax error)|(?:^Execution of .+ aborted)|(?:^Global symbol ")|(?:^Can't locate )|(?:^Undefined subroutine )|(?:^Bareword ")`)
}
