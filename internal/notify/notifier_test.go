package notify

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSink records delivered notifications per category.
type countingSink struct {
	capability atomic.Int64
	files      atomic.Int64
}

func (c *countingSink) CapabilityChanged() { c.capability.Add(1) }
func (c *countingSink) FilesChanged()      { c.files.Add(1) }

// TestClassify_TableDriven tests path classification against the
// workspaces root.
func TestClassify_TableDriven(t *testing.T) {
	root := filepath.Join("data", "ws")
	tests := []struct {
		name string
		path string
		want Category
	}{
		{
			name: "mcp config document",
			path: filepath.Join(root, "research", "mcp-servers.json"),
			want: CategoryCapability,
		},
		{
			name: "skill document",
			path: filepath.Join(root, "research", "skills", "foo", "SKILL.md"),
			want: CategoryCapability,
		},
		{
			name: "skills directory itself",
			path: filepath.Join(root, "research", "skills"),
			want: CategoryCapability,
		},
		{
			name: "ordinary workspace file",
			path: filepath.Join(root, "research", "notes.md"),
			want: CategoryFiles,
		},
		{
			name: "session working file",
			path: filepath.Join(root, "research", "sessions", "abc", "main.go"),
			want: CategoryFiles,
		},
		{
			name: "file merely named like skills",
			path: filepath.Join(root, "research", "skillset.txt"),
			want: CategoryFiles,
		},
		{
			name: "file inside a workspace slugged skills",
			path: filepath.Join(root, "skills", "notes.md"),
			want: CategoryFiles,
		},
		{
			name: "skills dir of a workspace slugged skills",
			path: filepath.Join(root, "skills", "skills", "foo", "SKILL.md"),
			want: CategoryCapability,
		},
		{
			name: "mcp config buried in working files",
			path: filepath.Join(root, "research", "sessions", "abc", "mcp-servers.json"),
			want: CategoryFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(root, tt.path))
		})
	}
}

// TestDebounceCollapses tests that a burst of same-category events
// produces exactly one notification, and that the two categories do not
// merge or delay one another.
func TestDebounceCollapses(t *testing.T) {
	sink := &countingSink{}
	n := New(t.TempDir(), sink, 30*time.Millisecond)
	n.running = true

	for i := 0; i < 5; i++ {
		n.bump(CategoryCapability)
	}
	n.bump(CategoryFiles)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), sink.capability.Load())
	assert.Equal(t, int64(1), sink.files.Load())
}

// TestDebounceResetsWindow tests that events inside the window push the
// notification out instead of firing per event.
func TestDebounceResetsWindow(t *testing.T) {
	sink := &countingSink{}
	n := New(t.TempDir(), sink, 60*time.Millisecond)
	n.running = true

	for i := 0; i < 4; i++ {
		n.bump(CategoryFiles)
		time.Sleep(20 * time.Millisecond) // inside the window each time
	}
	assert.Equal(t, int64(0), sink.files.Load())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(1), sink.files.Load())
}

// TestStopCancelsPending tests that nothing is delivered after Stop,
// including from an armed debounce timer.
func TestStopCancelsPending(t *testing.T) {
	sink := &countingSink{}
	n := New(t.TempDir(), sink, 30*time.Millisecond)
	require.NoError(t, n.Start())

	n.bump(CategoryCapability)
	n.bump(CategoryFiles)
	require.NoError(t, n.Stop())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(0), sink.capability.Load())
	assert.Equal(t, int64(0), sink.files.Load())
}

// TestStartStopIdempotent tests repeated lifecycle calls.
func TestStartStopIdempotent(t *testing.T) {
	n := New(t.TempDir(), &countingSink{}, 30*time.Millisecond)
	require.NoError(t, n.Start())
	require.NoError(t, n.Start())
	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())

	// A stopped notifier can be started again.
	require.NoError(t, n.Start())
	require.NoError(t, n.Stop())
}

// TestWatchDeliversClassified is an end-to-end check through fsnotify:
// skill edits debounce into one capability notification while an
// unrelated file change arrives independently.
func TestWatchDeliversClassified(t *testing.T) {
	root := t.TempDir()
	skillDir := filepath.Join(root, "research", "skills", "foo")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))

	sink := &countingSink{}
	n := New(root, sink, 50*time.Millisecond)
	require.NoError(t, n.Start())
	defer n.Stop()

	skillFile := filepath.Join(skillDir, "SKILL.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(skillFile, []byte("body"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "research", "notes.md"), []byte("x"), 0o644))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int64(1), sink.capability.Load())
	assert.Equal(t, int64(1), sink.files.Load())
}
