package api

import (
	"net/http"

	"github.com/nverno/inf-perl/internal/profile"
)

func (h *handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		jsonError(w, http.StatusInternalServerError, "profile registry unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, h.profiles.List())
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		jsonError(w, http.StatusInternalServerError, "profile registry unavailable")
		return
	}
	p := h.profiles.Get(r.PathValue("id"))
	if p == nil {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// putProfile creates or replaces the profile file under the id in the path.
func (h *handler) putProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		jsonError(w, http.StatusInternalServerError, "profile registry unavailable")
		return
	}
	id := r.PathValue("id")

	var req profile.Profile
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID != "" && req.ID != id {
		jsonError(w, http.StatusBadRequest, "profile id in path and body must match")
		return
	}
	req.ID = id

	existed := h.profiles.Get(id) != nil
	if err := h.profiles.Save(&req); err != nil {
		jsonError(w, profileStatusCode(err), err.Error())
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	jsonResponse(w, status, h.profiles.Get(id))
}

func (h *handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		jsonError(w, http.StatusInternalServerError, "profile registry unavailable")
		return
	}
	id := r.PathValue("id")
	if h.profiles.Get(id) == nil {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err := h.profiles.Delete(id); err != nil {
		jsonError(w, profileStatusCode(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func profileStatusCode(err error) int {
	if profile.IsValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
