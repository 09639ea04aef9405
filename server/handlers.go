package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/anitrack/accounts"
	"github.com/onnwee/anitrack/activity"
)

// Deps carries the collaborators the HTTP handlers report on.
type Deps struct {
	Store     *accounts.Store
	Poller    *activity.Poller
	DB        *sql.DB // nil when the file-backed document store is in use
	StartedAt time.Time
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps *Deps
}

func NewHandlers(deps *Deps) *Handlers {
	return &Handlers{deps: deps}
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests. With a Postgres document
// store configured the database must be reachable; the file store is always
// ready.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.deps.DB != nil {
		if err := h.deps.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": "database",
				"error":        err.Error(),
			})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus reports runtime state as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		LinkedAccounts int        `json:"linked_accounts"`
		LastPoll       *time.Time `json:"last_poll,omitempty"`
		UptimeSeconds  int64      `json:"uptime_seconds"`
	}
	st := status{
		LinkedAccounts: h.deps.Store.Len(),
		UptimeSeconds:  int64(time.Since(h.deps.StartedAt).Seconds()),
	}
	if h.deps.Poller != nil {
		if last := h.deps.Poller.LastCycle(); !last.IsZero() {
			st.LastPoll = &last
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}
