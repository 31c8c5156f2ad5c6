package api

import (
	"net/http"
	"strconv"

	"github.com/nverno/inf-perl/internal/db"
	"github.com/nverno/inf-perl/internal/session"
)

type ensureSessionRequest struct {
	Name      string `json:"name"`
	Profile   string `json:"profile"`
	Command   string `json:"command"`
	Startfile string `json:"startfile"`
}

type sendInputRequest struct {
	Line string `json:"line"`
}

type sendKeyRequest struct {
	Key string `json:"key"`
}

type sendSignalRequest struct {
	Signal string `json:"signal"`
}

type resizeRequest struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

type sessionsListResponse struct {
	Live   []session.Snapshot `json:"live"`
	Exited []*db.Session      `json:"exited"`
}

// ensureSession locates or creates the named session. The status code tells
// the caller what happened: 201 when a process was spawned, 200 when a live
// session was reused.
func (h *handler) ensureSession(w http.ResponseWriter, r *http.Request) {
	var req ensureSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, created, err := h.manager.Ensure(r.Context(), session.EnsureRequest{
		Name:      req.Name,
		Profile:   req.Profile,
		Command:   req.Command,
		Startfile: req.Startfile,
	})
	if err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	jsonResponse(w, status, sess.Snapshot())
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit query parameter")
			return
		}
		limit = n
	}

	live := make([]session.Snapshot, 0)
	for _, sess := range h.manager.List() {
		live = append(live, sess.Snapshot())
	}

	exited, err := h.sessionRepo.List(r.Context(), db.SessionFilter{Status: "exited", Limit: limit})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, sessionsListResponse{Live: live, Exited: exited})
}

// getSession answers with the live snapshot when the session is running and
// falls back to the newest ledger row under the name once it has exited.
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if sess, err := h.manager.Resolve(name); err == nil {
		jsonResponse(w, http.StatusOK, sess.Snapshot())
		return
	}

	record, err := h.sessionRepo.GetByName(r.Context(), name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResponse(w, http.StatusOK, record)
}

func (h *handler) sendInput(w http.ResponseWriter, r *http.Request) {
	var req sendInputRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.manager.SendInput(r.Context(), r.PathValue("name"), req.Line); err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *handler) sendKey(w http.ResponseWriter, r *http.Request) {
	var req sendKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		jsonError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.manager.SendKey(r.PathValue("name"), req.Key); err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *handler) sendSignal(w http.ResponseWriter, r *http.Request) {
	var req sendSignalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.manager.SendSignal(r.Context(), r.PathValue("name"), req.Signal); err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *handler) resizeSession(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.manager.Resize(r.PathValue("name"), req.Cols, req.Rows); err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "resized"})
}

func (h *handler) getOutput(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid since query parameter")
			return
		}
		since = n
	}

	snap, err := h.manager.Output(r.PathValue("name"), since)
	if err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, snap)
}

func (h *handler) saveHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.SaveHistory(r.Context(), r.PathValue("name")); err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "saved"})
}

// listInputs serves the submitted-line ledger. Exited sessions still have
// their rows, so resolution tries the live registry first and then the
// newest ledger row under the name.
func (h *handler) listInputs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit query parameter")
			return
		}
		limit = n
	}

	name := r.PathValue("name")
	id := ""
	if sess, err := h.manager.Resolve(name); err == nil {
		id = sess.ID
	} else {
		record, err := h.sessionRepo.GetByName(r.Context(), name)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			jsonError(w, http.StatusNotFound, "session not found")
			return
		}
		id = record.ID
	}

	inputs, err := h.inputRepo.ListBySession(r.Context(), id, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, inputs)
}

// deleteSession stops the process. The default path terminates and lets the
// exit hook flush history; ?destroy=1 tears the surface down first, which
// skips the flush.
func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var err error
	if r.URL.Query().Get("destroy") == "1" {
		err = h.manager.Destroy(r.Context(), name)
	} else {
		err = h.manager.Stop(r.Context(), name)
	}
	if err != nil {
		status, msg := mapSessionError(err)
		jsonError(w, status, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
