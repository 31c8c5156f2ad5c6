package hub

// OutputEntry is one classified scrollback line as sent to clients.
type OutputEntry struct {
	Seq   uint64 `json:"seq"`
	Text  string `json:"text"`
	Class string `json:"class"`
	Ts    int64  `json:"ts"`
}

// OutputMessage carries new scrollback entries plus the current partial
// line, which is the prompt while the REPL sits idle.
type OutputMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id"`
	Name      string        `json:"name"`
	Entries   []OutputEntry `json:"entries,omitempty"`
	Pending   string        `json:"pending"`
	AtPrompt  bool          `json:"at_prompt"`
}

type SessionInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Profile  string `json:"profile"`
	Status   string `json:"status"`
	AtPrompt bool   `json:"at_prompt"`
}

// SessionsMessage is the retained session list, sent to every client on
// connect and re-broadcast when the registry changes.
type SessionsMessage struct {
	Type string        `json:"type"`
	List []SessionInfo `json:"list"`
}

type StatusMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	AtPrompt  bool   `json:"at_prompt"`
}

type HistorySavedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Count     int    `json:"count"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage is anything a client sends: input lines, named keys,
// subscription scoping, and terminal resizes. Sessions are addressed by
// name.
type ClientMessage struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Line string `json:"line,omitempty"`
	Key  string `json:"key,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

type hubBroadcast struct {
	data []byte
	name string
}
