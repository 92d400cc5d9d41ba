// Package session provides the durable session index and append-only
// transcript storage for agentdesk.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridianhq/agentdesk/internal/workspace"
	"github.com/meridianhq/agentdesk/pkg/models"
)

// ErrSessionNotFound is returned for update/delete against an unknown
// session id, distinct from I/O failures.
var ErrSessionNotFound = errors.New("session not found")

const (
	indexVersion = 1
	// DefaultTitle is assigned when a session is created without one.
	DefaultTitle = "New conversation"
	// maxTranscriptLine bounds a single transcript line during reads.
	maxTranscriptLine = 8 << 20
)

// sessionIndex is the on-disk index document.
type sessionIndex struct {
	Version  int              `json:"version"`
	Sessions []models.Session `json:"sessions"`
}

// WorkspaceResolver resolves a workspace id to its directory slug.
// Implemented by workspace.Store; nil-able for tests that do not place
// per-session working directories.
type WorkspaceResolver interface {
	SlugFor(id string) (string, bool)
	EnsureSessionDir(slug, sessionID string) error
	RemoveSessionDir(slug, sessionID string) error
}

// Store is the authoritative session index plus one append-only NDJSON
// transcript per session. The index is the source of truth for
// existence and ordering; the transcript is crash-safe up to the last
// fully written line.
type Store struct {
	paths      workspace.Paths
	workspaces WorkspaceResolver
}

// NewStore creates a session store. workspaces may be nil when no
// workspace placement is needed.
func NewStore(paths workspace.Paths, workspaces WorkspaceResolver) *Store {
	return &Store{paths: paths, workspaces: workspaces}
}

// List returns all sessions sorted by UpdatedAt descending. A missing
// or unreadable index degrades to an empty slice, never an error.
func (s *Store) List() []models.Session {
	idx := s.readIndex()
	sort.SliceStable(idx.Sessions, func(i, j int) bool {
		return idx.Sessions[i].UpdatedAt > idx.Sessions[j].UpdatedAt
	})
	return idx.Sessions
}

// Get returns session metadata by id.
func (s *Store) Get(id string) (models.Session, error) {
	for _, sess := range s.readIndex().Sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return models.Session{}, ErrSessionNotFound
}

// Create registers a new session, ensures its transcript directory
// exists, and, when a workspace is given, its per-session working
// directory inside that workspace.
func (s *Store) Create(title, channelID, workspaceID string) (models.Session, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UnixMilli()
	sess := models.Session{
		ID:          uuid.NewString(),
		Title:       title,
		ChannelID:   channelID,
		WorkspaceID: workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	idx := s.readIndex()
	idx.Sessions = append(idx.Sessions, sess)
	if err := s.writeIndex(idx); err != nil {
		return models.Session{}, err
	}

	if err := os.MkdirAll(s.paths.TranscriptDir(), 0o755); err != nil {
		return models.Session{}, fmt.Errorf("create transcript dir: %w", err)
	}

	if workspaceID != "" && s.workspaces != nil {
		if slug, ok := s.workspaces.SlugFor(workspaceID); ok {
			if err := s.workspaces.EnsureSessionDir(slug, sess.ID); err != nil {
				return models.Session{}, fmt.Errorf("create session workspace dir: %w", err)
			}
		} else {
			log.Warn().Str("workspaceId", workspaceID).Msg("Session created for unknown workspace")
		}
	}

	log.Info().Str("sessionId", sess.ID).Str("title", title).Msg("Session created")
	return sess, nil
}

// Update merges the allowed metadata fields into an existing session,
// refreshes UpdatedAt, and rewrites the index.
func (s *Store) Update(id string, update models.SessionUpdate) (models.Session, error) {
	idx := s.readIndex()
	for i := range idx.Sessions {
		if idx.Sessions[i].ID != id {
			continue
		}
		sess := &idx.Sessions[i]
		if update.Title != nil {
			sess.Title = *update.Title
		}
		if update.ChannelID != nil {
			sess.ChannelID = *update.ChannelID
		}
		if update.SDKSessionID != nil {
			sess.SDKSessionID = *update.SDKSessionID
		}
		if update.WorkspaceID != nil {
			sess.WorkspaceID = *update.WorkspaceID
		}
		sess.UpdatedAt = monotonicNow(sess.UpdatedAt)
		if err := s.writeIndex(idx); err != nil {
			return models.Session{}, err
		}
		return *sess, nil
	}
	return models.Session{}, ErrSessionNotFound
}

// Touch refreshes a session's UpdatedAt without changing other fields.
// Called after transcript appends so list ordering tracks activity.
func (s *Store) Touch(id string) error {
	_, err := s.Update(id, models.SessionUpdate{})
	return err
}

// Delete removes the session from the index, then cleans up the
// transcript file and any workspace subdirectory best-effort. The index
// removal alone decides that the session no longer exists.
func (s *Store) Delete(id string) error {
	idx := s.readIndex()
	pos := -1
	for i, sess := range idx.Sessions {
		if sess.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return ErrSessionNotFound
	}

	workspaceID := idx.Sessions[pos].WorkspaceID
	idx.Sessions = append(idx.Sessions[:pos], idx.Sessions[pos+1:]...)
	if err := s.writeIndex(idx); err != nil {
		return err
	}

	if err := os.Remove(s.paths.TranscriptFile(id)); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("sessionId", id).Msg("Failed to remove transcript")
	}
	if workspaceID != "" && s.workspaces != nil {
		if slug, ok := s.workspaces.SlugFor(workspaceID); ok {
			if err := s.workspaces.RemoveSessionDir(slug, id); err != nil {
				log.Warn().Err(err).Str("sessionId", id).Msg("Failed to remove session workspace dir")
			}
		}
	}

	log.Info().Str("sessionId", id).Msg("Session deleted")
	return nil
}

// Append writes exactly one message line to the session's transcript.
// Losing a message is a correctness issue, so any failure propagates.
func (s *Store) Append(id string, msg models.Message) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := os.MkdirAll(s.paths.TranscriptDir(), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}

	f, err := os.OpenFile(s.paths.TranscriptFile(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Messages reads the session's transcript in append order. A missing
// transcript yields an empty slice. Unparseable lines (including a
// trailing partial line left by a crash mid-append) are skipped
// individually; one corrupt line never discards the rest.
func (s *Store) Messages(id string) []models.Message {
	f, err := os.Open(s.paths.TranscriptFile(id))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("sessionId", id).Msg("Failed to open transcript")
		}
		return nil
	}
	defer f.Close()

	var messages []models.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxTranscriptLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Warn().Err(err).Str("sessionId", id).Int("line", lineNo).Msg("Skipping corrupt transcript line")
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Str("sessionId", id).Msg("Transcript read truncated")
	}
	return messages
}

// readIndex loads the index document, degrading to an empty document on
// absence or corruption.
func (s *Store) readIndex() sessionIndex {
	data, err := os.ReadFile(s.paths.IndexFile())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Failed to read session index")
		}
		return sessionIndex{Version: indexVersion}
	}
	var idx sessionIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		log.Warn().Err(err).Msg("Session index unparseable, treating as empty")
		return sessionIndex{Version: indexVersion}
	}
	return idx
}

// writeIndex rewrites the whole index document. Last writer wins; the
// UI serializes writes per session.
func (s *Store) writeIndex(idx sessionIndex) error {
	idx.Version = indexVersion
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.paths.IndexFile()), 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	tmp := s.paths.IndexFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session index: %w", err)
	}
	if err := os.Rename(tmp, s.paths.IndexFile()); err != nil {
		return fmt.Errorf("replace session index: %w", err)
	}
	return nil
}

func monotonicNow(prev int64) int64 {
	now := time.Now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}
