// Package healthserver exposes a minimal liveness/status HTTP endpoint
// (SPEC_FULL.md's ambient operability surface), bound to
// config.AppConfig.HealthPort.
//
// Grounded on internal/server/server.go's http.Server lifecycle
// (ListenAndServe in a goroutine, Shutdown on signal/context cancel) but
// stripped of gin: this package only ever serves two fixed, unauthenticated
// JSON routes, so routing through a web framework built for the teacher's
// REST/GraphQL surface would add a dependency for no behavior (see
// DESIGN.md for why gin/gqlgen/grpc are dropped entirely from this repo).
package healthserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/inboxforge/syncengine/interfaces"
	"github.com/inboxforge/syncengine/internal/logger"
)

// Server serves /healthz (always ok once the process is up) and /status
// (sync status of each ACTIVE mailbox, for operators diagnosing a stuck
// mailbox; mailboxes in ERROR or DISABLED status are not listed).
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

func New(addr string, mailboxes interfaces.MailboxStore, log logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/status", handleStatus(mailboxes))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		log: log,
	}
}

// Start runs ListenAndServe in the background. Errors after Shutdown has
// been called (http.ErrServerClosed) are expected and not logged as
// failures.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("healthserver: %v", err)
		}
	}()
}

// Shutdown drains in-flight requests within the given context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports each ACTIVE mailbox's sync checkpoint and current
// status, the minimal view an operator needs to tell "caught up" from
// "stuck". Mailboxes in ERROR or DISABLED status are not listed.
func handleStatus(mailboxes interfaces.MailboxStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := mailboxes.GetActiveMailboxes(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		type mailboxStatus struct {
			ID            string     `json:"id"`
			Status        string     `json:"status"`
			LastSyncedUID uint32     `json:"last_synced_uid"`
			LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
			LastError     string     `json:"last_error,omitempty"`
		}

		out := make([]mailboxStatus, 0, len(active))
		for _, m := range active {
			out = append(out, mailboxStatus{
				ID:            m.ID,
				Status:        string(m.Status),
				LastSyncedUID: m.LastSyncedUID,
				LastSyncedAt:  m.LastSyncedAt,
				LastError:     m.LastError,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
