package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/meridianhq/agentdesk/internal/workspace"
	"github.com/meridianhq/agentdesk/pkg/models"
)

// StoreSuite is a test suite for session store operations.
type StoreSuite struct {
	suite.Suite
	tempDir    string
	store      *Store
	workspaces *workspace.Store
}

func (s *StoreSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	paths := workspace.NewPaths(s.tempDir)
	s.workspaces = workspace.NewStore(paths)
	s.Require().NoError(s.workspaces.EnsureDefault())
	s.store = NewStore(paths, s.workspaces)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

// TestCreateAndList tests that created sessions come back sorted by
// UpdatedAt descending.
func (s *StoreSuite) TestCreateAndList() {
	first, err := s.store.Create("first", "", "")
	s.Require().NoError(err)
	second, err := s.store.Create("second", "", "")
	s.Require().NoError(err)
	third, err := s.store.Create("", "channel-1", "")
	s.Require().NoError(err)

	s.Equal(DefaultTitle, third.Title)
	s.Equal("channel-1", third.ChannelID)

	// Touch the oldest so it becomes the most recently updated.
	s.Require().NoError(s.store.Touch(first.ID))

	sessions := s.store.List()
	s.Require().Len(sessions, 3)
	s.Equal(first.ID, sessions[0].ID)
	s.GreaterOrEqual(sessions[0].UpdatedAt, sessions[1].UpdatedAt)
	s.GreaterOrEqual(sessions[1].UpdatedAt, sessions[2].UpdatedAt)

	ids := map[string]bool{}
	for _, sess := range sessions {
		ids[sess.ID] = true
	}
	s.True(ids[first.ID])
	s.True(ids[second.ID])
	s.True(ids[third.ID])
}

// TestListEmpty tests that a missing index degrades to an empty list.
func (s *StoreSuite) TestListEmpty() {
	s.Empty(s.store.List())
}

// TestListCorruptIndex tests that a corrupt index degrades to empty.
func (s *StoreSuite) TestListCorruptIndex() {
	paths := workspace.NewPaths(s.tempDir)
	s.Require().NoError(os.MkdirAll(filepath.Dir(paths.IndexFile()), 0o755))
	s.Require().NoError(os.WriteFile(paths.IndexFile(), []byte("{not json"), 0o644))
	s.Empty(s.store.List())
}

// TestGet tests metadata lookup.
func (s *StoreSuite) TestGet() {
	created, err := s.store.Create("lookup", "", "")
	s.Require().NoError(err)

	got, err := s.store.Get(created.ID)
	s.NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("lookup", got.Title)

	_, err = s.store.Get("missing")
	s.ErrorIs(err, ErrSessionNotFound)
}

// TestAppendAndMessages tests the append/read round-trip.
func (s *StoreSuite) TestAppendAndMessages() {
	sess, err := s.store.Create("chat", "", "")
	s.Require().NoError(err)

	msgs := []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
		{Role: models.RoleTool, Content: `{"result":"ok"}`},
	}
	for _, msg := range msgs {
		s.Require().NoError(s.store.Append(sess.ID, msg))
	}

	got := s.store.Messages(sess.ID)
	s.Require().Len(got, 3)
	for i := range msgs {
		s.Equal(msgs[i].Role, got[i].Role)
		s.Equal(msgs[i].Content, got[i].Content)
		s.NotZero(got[i].CreatedAt)
	}
}

// TestAppendUnknownSession tests that appends to unknown ids fail
// loudly.
func (s *StoreSuite) TestAppendUnknownSession() {
	err := s.store.Append("missing", models.Message{Role: models.RoleUser, Content: "x"})
	s.ErrorIs(err, ErrSessionNotFound)
}

// TestMessagesSkipsCorruptLines tests that one corrupt line does not
// discard the rest of the transcript.
func (s *StoreSuite) TestMessagesSkipsCorruptLines() {
	sess, err := s.store.Create("corrupt", "", "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(sess.ID, models.Message{Role: models.RoleUser, Content: "before"}))

	// Simulate a crash mid-append: a trailing partial line.
	paths := workspace.NewPaths(s.tempDir)
	f, err := os.OpenFile(paths.TranscriptFile(sess.ID), os.O_WRONLY|os.O_APPEND, 0o644)
	s.Require().NoError(err)
	_, err = f.WriteString(`{"role":"assistant","conte` + "\n")
	s.Require().NoError(err)
	s.Require().NoError(f.Close())

	s.Require().NoError(s.store.Append(sess.ID, models.Message{Role: models.RoleAssistant, Content: "after"}))

	got := s.store.Messages(sess.ID)
	s.Require().Len(got, 2)
	s.Equal("before", got[0].Content)
	s.Equal("after", got[1].Content)
}

// TestMessagesMissingTranscript tests the absent-data path.
func (s *StoreSuite) TestMessagesMissingTranscript() {
	sess, err := s.store.Create("empty", "", "")
	s.Require().NoError(err)
	s.Empty(s.store.Messages(sess.ID))
}

// TestUpdate tests partial metadata merges.
func (s *StoreSuite) TestUpdate() {
	sess, err := s.store.Create("original", "chan-a", "")
	s.Require().NoError(err)

	title := "renamed"
	sdkID := "sdk-123"
	updated, err := s.store.Update(sess.ID, models.SessionUpdate{Title: &title, SDKSessionID: &sdkID})
	s.Require().NoError(err)
	s.Equal("renamed", updated.Title)
	s.Equal("sdk-123", updated.SDKSessionID)
	s.Equal("chan-a", updated.ChannelID) // untouched field survives
	s.Greater(updated.UpdatedAt, sess.CreatedAt-1)

	_, err = s.store.Update("missing", models.SessionUpdate{Title: &title})
	s.ErrorIs(err, ErrSessionNotFound)
}

// TestUpdateRefreshesTimestamp tests that every update advances
// UpdatedAt even under rapid calls.
func (s *StoreSuite) TestUpdateRefreshesTimestamp() {
	sess, err := s.store.Create("ticking", "", "")
	s.Require().NoError(err)

	prev := sess.UpdatedAt
	for i := 0; i < 3; i++ {
		updated, err := s.store.Update(sess.ID, models.SessionUpdate{})
		s.Require().NoError(err)
		s.Greater(updated.UpdatedAt, prev)
		prev = updated.UpdatedAt
	}
}

// TestDelete tests that deletion removes the index entry and the
// transcript, and that reads degrade to empty afterwards.
func (s *StoreSuite) TestDelete() {
	sess, err := s.store.Create("doomed", "", "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(sess.ID, models.Message{Role: models.RoleUser, Content: "bye"}))

	s.Require().NoError(s.store.Delete(sess.ID))

	s.Empty(s.store.List())
	s.Empty(s.store.Messages(sess.ID))
	_, err = s.store.Get(sess.ID)
	s.ErrorIs(err, ErrSessionNotFound)

	paths := workspace.NewPaths(s.tempDir)
	_, err = os.Stat(paths.TranscriptFile(sess.ID))
	s.True(os.IsNotExist(err))

	s.ErrorIs(s.store.Delete(sess.ID), ErrSessionNotFound)
}

// TestWorkspacePlacement tests that workspace-scoped sessions get a
// working directory that deletion cleans up.
func (s *StoreSuite) TestWorkspacePlacement() {
	ws, err := s.workspaces.Create("Research")
	s.Require().NoError(err)

	sess, err := s.store.Create("scoped", "", ws.ID)
	s.Require().NoError(err)

	paths := workspace.NewPaths(s.tempDir)
	dir := paths.SessionDir(ws.Slug, sess.ID)
	info, err := os.Stat(dir)
	s.Require().NoError(err)
	s.True(info.IsDir())

	s.Require().NoError(s.store.Delete(sess.ID))
	_, err = os.Stat(dir)
	s.True(os.IsNotExist(err))
}
