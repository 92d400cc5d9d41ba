package workspace

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridianhq/agentdesk/pkg/models"
)

var (
	// ErrWorkspaceNotFound is returned for operations on an unknown id.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrWorkspaceProtected is returned when deleting the default
	// workspace or the only remaining workspace.
	ErrWorkspaceProtected = errors.New("workspace cannot be deleted")
	// ErrSlugTaken is returned when a create collides on slug.
	ErrSlugTaken = errors.New("workspace slug already exists")
)

const indexVersion = 1

// workspaceIndex is the on-disk workspace index document.
type workspaceIndex struct {
	Version    int                `json:"version"`
	Workspaces []models.Workspace `json:"workspaces"`
}

// Store is the authoritative index of workspaces plus their on-disk
// directories. The index file is the source of truth for existence; the
// directory tree follows it best-effort.
type Store struct {
	paths Paths
}

// NewStore creates a workspace store over the given paths.
func NewStore(paths Paths) *Store {
	return &Store{paths: paths}
}

// Paths exposes the path resolver for collaborating stores.
func (s *Store) Paths() Paths {
	return s.paths
}

// EnsureDefault creates the workspaces directory and the default
// workspace if absent. Safe to call repeatedly.
func (s *Store) EnsureDefault() error {
	if err := os.MkdirAll(s.paths.WorkspacesDir(), 0o755); err != nil {
		return fmt.Errorf("create workspaces dir: %w", err)
	}
	idx := s.readIndex()
	for _, ws := range idx.Workspaces {
		if ws.Slug == DefaultSlug {
			return s.ensureDirs(DefaultSlug)
		}
	}
	now := time.Now().UnixMilli()
	idx.Workspaces = append(idx.Workspaces, models.Workspace{
		ID:        uuid.NewString(),
		Slug:      DefaultSlug,
		Name:      "Default",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err := s.writeIndex(idx); err != nil {
		return err
	}
	return s.ensureDirs(DefaultSlug)
}

// List returns all workspaces in index order. A missing or unreadable
// index degrades to an empty slice.
func (s *Store) List() []models.Workspace {
	return s.readIndex().Workspaces
}

// Get returns a workspace by id.
func (s *Store) Get(id string) (models.Workspace, error) {
	for _, ws := range s.readIndex().Workspaces {
		if ws.ID == id {
			return ws, nil
		}
	}
	return models.Workspace{}, ErrWorkspaceNotFound
}

// GetBySlug returns a workspace by slug.
func (s *Store) GetBySlug(slug string) (models.Workspace, error) {
	for _, ws := range s.readIndex().Workspaces {
		if ws.Slug == slug {
			return ws, nil
		}
	}
	return models.Workspace{}, ErrWorkspaceNotFound
}

// SlugFor resolves a workspace id to its slug. Used by the session
// store when placing per-session working directories.
func (s *Store) SlugFor(id string) (string, bool) {
	ws, err := s.Get(id)
	if err != nil {
		return "", false
	}
	return ws.Slug, true
}

// Create adds a workspace. The slug is derived from the name and is
// immutable afterwards.
func (s *Store) Create(name string) (models.Workspace, error) {
	slug := Slugify(name)
	if slug == "" {
		slug = "workspace"
	}

	idx := s.readIndex()
	for _, ws := range idx.Workspaces {
		if ws.Slug == slug {
			return models.Workspace{}, fmt.Errorf("%w: %s", ErrSlugTaken, slug)
		}
	}

	now := time.Now().UnixMilli()
	ws := models.Workspace{
		ID:        uuid.NewString(),
		Slug:      slug,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	idx.Workspaces = append(idx.Workspaces, ws)
	if err := s.writeIndex(idx); err != nil {
		return models.Workspace{}, err
	}
	if err := s.ensureDirs(slug); err != nil {
		return models.Workspace{}, err
	}

	log.Info().Str("workspaceId", ws.ID).Str("slug", slug).Msg("Workspace created")
	return ws, nil
}

// Rename updates a workspace's display name. The slug never changes.
func (s *Store) Rename(id, name string) (models.Workspace, error) {
	idx := s.readIndex()
	for i := range idx.Workspaces {
		if idx.Workspaces[i].ID != id {
			continue
		}
		idx.Workspaces[i].Name = name
		idx.Workspaces[i].UpdatedAt = monotonicNow(idx.Workspaces[i].UpdatedAt)
		if err := s.writeIndex(idx); err != nil {
			return models.Workspace{}, err
		}
		return idx.Workspaces[i], nil
	}
	return models.Workspace{}, ErrWorkspaceNotFound
}

// Delete removes a workspace and its directory tree. The default
// workspace and the last remaining workspace are protected. Directory
// removal is best-effort; the index entry removal is authoritative.
func (s *Store) Delete(id string) error {
	idx := s.readIndex()
	pos := -1
	for i, ws := range idx.Workspaces {
		if ws.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return ErrWorkspaceNotFound
	}
	if len(idx.Workspaces) <= 1 {
		return fmt.Errorf("%w: it is the only workspace", ErrWorkspaceProtected)
	}
	if idx.Workspaces[pos].Slug == DefaultSlug {
		return fmt.Errorf("%w: %s", ErrWorkspaceProtected, DefaultSlug)
	}

	slug := idx.Workspaces[pos].Slug
	idx.Workspaces = append(idx.Workspaces[:pos], idx.Workspaces[pos+1:]...)
	if err := s.writeIndex(idx); err != nil {
		return err
	}

	if err := os.RemoveAll(s.paths.WorkspaceDir(slug)); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("Failed to remove workspace directory")
	}
	return nil
}

// EnsureSessionDir creates the per-session working directory inside a
// workspace.
func (s *Store) EnsureSessionDir(slug, sessionID string) error {
	return os.MkdirAll(s.paths.SessionDir(slug, sessionID), 0o755)
}

// RemoveSessionDir removes a session's workspace subdirectory.
func (s *Store) RemoveSessionDir(slug, sessionID string) error {
	return os.RemoveAll(s.paths.SessionDir(slug, sessionID))
}

func (s *Store) ensureDirs(slug string) error {
	if err := os.MkdirAll(s.paths.SkillsDir(slug), 0o755); err != nil {
		return fmt.Errorf("create workspace dirs: %w", err)
	}
	return nil
}

// readIndex loads the workspace index, degrading to an empty document
// on absence or corruption.
func (s *Store) readIndex() workspaceIndex {
	data, err := os.ReadFile(s.paths.WorkspacesIndexFile())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Failed to read workspace index")
		}
		return workspaceIndex{Version: indexVersion}
	}
	var idx workspaceIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		log.Warn().Err(err).Msg("Workspace index unparseable, treating as empty")
		return workspaceIndex{Version: indexVersion}
	}
	return idx
}

func (s *Store) writeIndex(idx workspaceIndex) error {
	idx.Version = indexVersion
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workspace index: %w", err)
	}
	if err := os.MkdirAll(s.paths.WorkspacesDir(), 0o755); err != nil {
		return fmt.Errorf("create workspaces dir: %w", err)
	}
	tmp := s.paths.WorkspacesIndexFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write workspace index: %w", err)
	}
	if err := os.Rename(tmp, s.paths.WorkspacesIndexFile()); err != nil {
		return fmt.Errorf("replace workspace index: %w", err)
	}
	return nil
}

var slugScrub = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a display name into a filesystem-safe slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugScrub.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// monotonicNow returns the current unix-milli timestamp, nudged forward
// if the clock has not advanced past prev. Keeps updatedAt ordering
// strict under rapid successive updates.
func monotonicNow(prev int64) int64 {
	now := time.Now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}
