package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// errorBody is the envelope every failed call carries. Code is a stable
// snake_case handle on the failure kind, so clients can branch without
// matching message text.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if data == nil || status == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message, Code: statusSlug(status)})
}

// statusSlug lowers "Not Found" to "not_found". Statuses the stdlib has no
// text for fall back to the bare number.
func statusSlug(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return strconv.Itoa(status)
	}
	return strings.ToLower(strings.ReplaceAll(text, " ", "_"))
}
