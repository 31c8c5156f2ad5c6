package parser

import (
	"regexp"
	"sync"
)

// Rule is one caller-installed highlighting rule for REPL output.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Class   Class
}

// Classifier labels lines of a REPL stream. The prompt and continuation
// patterns come from the session's profile; the rule set starts empty and is
// extensible at runtime. Safe for concurrent use.
type Classifier struct {
	prompt       *regexp.Regexp
	continuation *regexp.Regexp

	mu    sync.RWMutex
	rules []Rule
}

// NewClassifier builds a classifier from compiled prompt and continuation
// patterns. Either may be nil, in which case that class is never produced.
func NewClassifier(prompt, continuation *regexp.Regexp) *Classifier {
	return &Classifier{prompt: prompt, continuation: continuation}
}

// Default classifies with the generic prompt shape shared by the stock REPLs.
func Default() *Classifier {
	return NewClassifier(PromptDefaultPattern, ContinuationDefaultPattern)
}

// AddRule appends a highlighting rule. Rules are consulted in insertion
// order, after prompt and continuation matching and before the built-in
// error shapes.
func (c *Classifier) AddRule(name string, pattern *regexp.Regexp, class Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, Rule{Name: name, Pattern: pattern, Class: class})
}

// Rules returns a copy of the installed rules.
func (c *Classifier) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify labels a single line. The line is ANSI-stripped first so colored
// prompts still match.
func (c *Classifier) Classify(line string) Class {
	clean := StripANSI(line)

	if c.prompt != nil && c.prompt.MatchString(clean) {
		return ClassPrompt
	}
	if c.continuation != nil && c.continuation.MatchString(clean) {
		return ClassContinuation
	}

	c.mu.RLock()
	rules := c.rules
	c.mu.RUnlock()
	for _, r := range rules {
		if r.Pattern.MatchString(clean) {
			return r.Class
		}
	}

	if ErrorPattern.MatchString(clean) {
		return ClassError
	}
	return ClassOutput
}

// IsPrompt reports whether the line matches the prompt pattern alone.
func (c *Classifier) IsPrompt(line string) bool {
	return c.prompt != nil && c.prompt.MatchString(StripANSI(line))
}
