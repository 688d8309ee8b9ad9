package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/markdave123-py/Clausewise/internal/logger"
)

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SessionHandler struct {
	checks map[string]Pinger
}

// NewSessionHandler builds the session routes. checks are pinged by Health,
// keyed by the name reported to the client.
func NewSessionHandler(checks map[string]Pinger) *SessionHandler {
	return &SessionHandler{checks: checks}
}

// Health reports "ok" when every dependency answers, else 503 with the
// failing ones marked.
func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			logger.Warn(r.Context(), "health check failed", "dependency", name, "error", err)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

// Session returns the user the request is authenticated as.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}

// Logout ends the client session. Tokens are stateless, so the client drops
// its copy.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger.Info(r.Context(), "user signed out")
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
