package api

import (
	"net/http"
	"strings"
)

type settingsResponse struct {
	DefaultProfile string `json:"default_profile"`
}

type settingsUpdateRequest struct {
	DefaultProfile *string `json:"default_profile,omitempty"`
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	stored, err := h.settings.All(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dp := stored["default_profile"]
	if dp == "" && h.manager != nil {
		dp = h.manager.DefaultProfile()
	}
	jsonResponse(w, http.StatusOK, settingsResponse{DefaultProfile: dp})
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DefaultProfile != nil {
		dp := strings.TrimSpace(*req.DefaultProfile)
		if dp == "" {
			jsonError(w, http.StatusBadRequest, "default_profile must not be empty")
			return
		}
		if h.profiles != nil && h.profiles.Get(dp) == nil {
			jsonError(w, http.StatusBadRequest, "unknown profile "+dp)
			return
		}
		if err := h.settings.Set(r.Context(), "default_profile", dp); err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if h.manager != nil {
			h.manager.SetDefaultProfile(dp)
		}
	}

	h.getSettings(w, r)
}
