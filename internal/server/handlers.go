package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/meridianhq/agentdesk/internal/activity"
	"github.com/meridianhq/agentdesk/internal/contextwatch"
	"github.com/meridianhq/agentdesk/internal/search"
	"github.com/meridianhq/agentdesk/pkg/models"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

type createSessionRequest struct {
	Title       string `json:"title,omitempty"`
	ChannelID   string `json:"channelId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess, err := s.sessions.Create(req.Title, req.ChannelID, req.WorkspaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var update models.SessionUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sess, err := s.sessions.Update(chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	if s.index != nil {
		if err := s.index.DeleteSession(r.Context(), id); err != nil {
			log.Warn().Err(err).Str("sessionId", id).Msg("Failed to drop session from search index")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	messages := s.sessions.Messages(chi.URLParam(r, "id"))
	if messages == nil {
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.sessions.Append(id, msg); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sessions.Touch(id); err != nil {
		log.Warn().Err(err).Str("sessionId", id).Msg("Failed to refresh session timestamp")
	}
	if s.index != nil {
		if err := s.index.IndexMessage(r.Context(), id, msg); err != nil {
			log.Warn().Err(err).Str("sessionId", id).Msg("Failed to index message")
		}
	}
	w.WriteHeader(http.StatusCreated)
}

// handleSessionContext estimates a session's context usage from its
// transcript when no provider counters are available.
func (s *Server) handleSessionContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(id); err != nil {
		writeError(w, err)
		return
	}
	if s.estimator == nil {
		writeJSON(w, http.StatusOK, contextwatch.Classify(0, s.window, false))
		return
	}
	tokens, err := s.estimator.CountMessages(s.sessions.Messages(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contextwatch.Classify(tokens, s.window, false))
}

func (s *Server) handleActivityView(w http.ResponseWriter, r *http.Request) {
	var events []activity.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	agg := activity.NewAggregator()
	agg.ApplyAll(events)
	view := agg.View()
	if view == nil {
		view = []models.ActivityItem{}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleContextUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	inputTokens, _ := strconv.Atoi(q.Get("inputTokens"))
	window, _ := strconv.Atoi(q.Get("contextWindow"))
	if window <= 0 {
		window = s.window
	}
	compacting := q.Get("compacting") == "true"
	writeJSON(w, http.StatusOK, contextwatch.Classify(inputTokens, window, compacting))
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workspaces.List())
}

type workspaceRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	ws, err := s.workspaces.Create(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleRenameWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	ws, err := s.workspaces.Rename(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMCPConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workspaces.ReadMCPConfig(chi.URLParam(r, "slug")))
}

func (s *Server) handlePutMCPConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.MCPConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.workspaces.WriteMCPConfig(chi.URLParam(r, "slug"), cfg); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	skills := s.workspaces.ListSkills(chi.URLParam(r, "slug"))
	if skills == nil {
		skills = []models.Skill{}
	}
	writeJSON(w, http.StatusOK, skills)
}

func (s *Server) handlePutSkill(w http.ResponseWriter, r *http.Request) {
	var skill models.Skill
	if err := json.NewDecoder(r.Body).Decode(&skill); err != nil || skill.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "skill name is required"})
		return
	}
	if err := s.workspaces.WriteSkill(chi.URLParam(r, "slug"), skill); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSkill(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.DeleteSkill(chi.URLParam(r, "slug"), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search is disabled"})
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := s.index.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, hits)
}
