package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/nverno/inf-perl/internal/session"
)

type runScriptRequest struct {
	Session string `json:"session"`
}

type runScriptResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

func (h *handler) listScripts(w http.ResponseWriter, r *http.Request) {
	if h.scripts == nil {
		jsonError(w, http.StatusInternalServerError, "script registry unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, h.scripts.List())
}

func (h *handler) getScript(w http.ResponseWriter, r *http.Request) {
	if h.scripts == nil {
		jsonError(w, http.StatusInternalServerError, "script registry unavailable")
		return
	}
	sc := h.scripts.Get(r.PathValue("id"))
	if sc == nil {
		jsonError(w, http.StatusNotFound, "script not found")
		return
	}
	jsonResponse(w, http.StatusOK, sc)
}

// runScript ensures a target session and replays the script into it. The
// body may name the session; otherwise the script's profile picks one the
// same way an ensure without a name does. The call returns when the last
// step has finished.
func (h *handler) runScript(w http.ResponseWriter, r *http.Request) {
	if h.scripts == nil {
		jsonError(w, http.StatusInternalServerError, "script registry unavailable")
		return
	}
	sc := h.scripts.Get(r.PathValue("id"))
	if sc == nil {
		jsonError(w, http.StatusNotFound, "script not found")
		return
	}

	var req runScriptRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, _, err := h.manager.Ensure(r.Context(), session.EnsureRequest{
		Name:    req.Session,
		Profile: sc.Profile,
	})
	if err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}

	if err := h.runner.Run(r.Context(), sess.Name, sc); err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, runScriptResponse{Status: "completed", Session: sess.Name})
}
