// Package server exposes the engine's boundary contract to the
// presentation layer over HTTP, plus an SSE stream for change
// notifications.
package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/meridianhq/agentdesk/internal/contextwatch"
	"github.com/meridianhq/agentdesk/internal/search"
	"github.com/meridianhq/agentdesk/internal/server/sse"
	"github.com/meridianhq/agentdesk/internal/session"
	"github.com/meridianhq/agentdesk/internal/workspace"
)

// Server wires the engine components behind an HTTP surface.
type Server struct {
	sessions    *session.Store
	workspaces  *workspace.Store
	index       *search.Index // nil when search is disabled
	estimator   *contextwatch.Estimator
	broadcaster *sse.Broadcaster
	window      int // default context window for estimates
}

// Config holds the server's collaborators.
type Config struct {
	Sessions      *session.Store
	Workspaces    *workspace.Store
	Index         *search.Index
	Estimator     *contextwatch.Estimator
	ContextWindow int
}

// New creates a server. Index and Estimator are optional.
func New(cfg Config) *Server {
	return &Server{
		sessions:    cfg.Sessions,
		workspaces:  cfg.Workspaces,
		index:       cfg.Index,
		estimator:   cfg.Estimator,
		broadcaster: sse.NewBroadcaster(),
		window:      cfg.ContextWindow,
	}
}

// Broadcaster exposes the SSE fan-out, for wiring into the notifier.
func (s *Server) Broadcaster() *sse.Broadcaster {
	return s.broadcaster
}

// CapabilityChanged implements notify.Sink.
func (s *Server) CapabilityChanged() {
	s.broadcaster.Broadcast(map[string]string{"type": "capability_changed"})
}

// FilesChanged implements notify.Sink.
func (s *Server) FilesChanged() {
	s.broadcaster.Broadcast(map[string]string{"type": "files_changed"})
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Patch("/", s.handleUpdateSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/messages", s.handleGetMessages)
				r.Post("/messages", s.handleAppendMessage)
				r.Get("/context", s.handleSessionContext)
			})
		})

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", s.handleListWorkspaces)
			r.Post("/", s.handleCreateWorkspace)
			r.Patch("/{id}", s.handleRenameWorkspace)
			r.Delete("/{id}", s.handleDeleteWorkspace)
			r.Get("/{slug}/mcp", s.handleGetMCPConfig)
			r.Put("/{slug}/mcp", s.handlePutMCPConfig)
			r.Get("/{slug}/skills", s.handleListSkills)
			r.Put("/{slug}/skills", s.handlePutSkill)
			r.Delete("/{slug}/skills/{name}", s.handleDeleteSkill)
		})

		r.Post("/activity/view", s.handleActivityView)
		r.Get("/context/usage", s.handleContextUsage)
		r.Get("/search", s.handleSearch)
		r.Get("/events", s.broadcaster.HandleSSE)
	})

	return r
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// writeError maps engine errors onto HTTP statuses: not-found and
// protected-resource errors are caller errors, everything else is a
// server failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, workspace.ErrWorkspaceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workspace.ErrWorkspaceProtected),
		errors.Is(err, workspace.ErrSlugTaken):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
