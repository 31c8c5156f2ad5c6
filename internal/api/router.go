// Package api exposes the session service over REST. Handlers stay thin:
// resolution, spawning, and teardown live in the session manager; this
// package maps them onto routes and status codes.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nverno/inf-perl/internal/db"
	"github.com/nverno/inf-perl/internal/profile"
	"github.com/nverno/inf-perl/internal/script"
	"github.com/nverno/inf-perl/internal/session"
	"github.com/nverno/inf-perl/internal/surface"
)

type handler struct {
	manager     *session.Manager
	profiles    *profile.Registry
	scripts     *script.Registry
	runner      *script.Runner
	sessionRepo *db.SessionRepo
	inputRepo   *db.InputRepo
	settings    *db.SettingsRepo
}

func NewRouter(conn *sql.DB, mgr *session.Manager, profiles *profile.Registry, scripts *script.Registry, token string) http.Handler {
	handler := &handler{
		manager:     mgr,
		profiles:    profiles,
		scripts:     scripts,
		runner:      script.NewRunner(mgr),
		sessionRepo: db.NewSessionRepo(conn),
		inputRepo:   db.NewInputRepo(conn),
		settings:    db.NewSettingsRepo(conn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handler.health)

	mux.HandleFunc("GET /api/sessions", handler.listSessions)
	mux.HandleFunc("POST /api/sessions", handler.ensureSession)
	mux.HandleFunc("GET /api/sessions/{name}", handler.getSession)
	mux.HandleFunc("DELETE /api/sessions/{name}", handler.deleteSession)
	mux.HandleFunc("POST /api/sessions/{name}/input", handler.sendInput)
	mux.HandleFunc("POST /api/sessions/{name}/key", handler.sendKey)
	mux.HandleFunc("POST /api/sessions/{name}/signal", handler.sendSignal)
	mux.HandleFunc("POST /api/sessions/{name}/resize", handler.resizeSession)
	mux.HandleFunc("GET /api/sessions/{name}/output", handler.getOutput)
	mux.HandleFunc("POST /api/sessions/{name}/history/save", handler.saveHistory)
	mux.HandleFunc("GET /api/sessions/{name}/inputs", handler.listInputs)

	mux.HandleFunc("GET /api/profiles", handler.listProfiles)
	mux.HandleFunc("GET /api/profiles/{id}", handler.getProfile)
	mux.HandleFunc("PUT /api/profiles/{id}", handler.putProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", handler.deleteProfile)

	mux.HandleFunc("GET /api/scripts", handler.listScripts)
	mux.HandleFunc("GET /api/scripts/{id}", handler.getScript)
	mux.HandleFunc("POST /api/scripts/{id}/run", handler.runScript)

	mux.HandleFunc("GET /api/settings", handler.getSettings)
	mux.HandleFunc("PUT /api/settings", handler.updateSettings)

	wrapped := authMiddleware(token)(jsonMiddleware(corsMiddleware(mux)))
	return wrapped
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authMiddleware requires the service token on every /api route except the
// health probe. Both the Authorization header and a token query parameter
// are accepted, the latter for clients that cannot set headers.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func mapSessionError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, surface.ErrExited), errors.Is(err, surface.ErrDestroyed):
		return http.StatusConflict, err.Error()
	case strings.Contains(err.Error(), "unknown profile"),
		strings.Contains(err.Error(), "unknown signal"),
		strings.Contains(err.Error(), "invalid size"),
		strings.Contains(err.Error(), "required"):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
