package script

// Script is a YAML-defined input sequence replayed into a session.
type Script struct {
	ID          string `yaml:"id,omitempty" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Profile names the profile a runner should ensure the target session
	// with when the caller does not pick one.
	Profile string `yaml:"profile,omitempty" json:"profile,omitempty"`
	Steps   []Step `yaml:"steps" json:"steps"`
}

// Step is one scripted action. Exactly one field is set: Send submits a
// line of input, WaitPrompt blocks until the session shows a prompt again,
// for at most the given duration ("5s", "1m").
type Step struct {
	Send       string `yaml:"send,omitempty" json:"send,omitempty"`
	WaitPrompt string `yaml:"wait_prompt,omitempty" json:"wait_prompt,omitempty"`
}
