// Package workspace manages workspace directories, metadata, and
// capability documents (MCP servers and skills) for agentdesk.
package workspace

import "path/filepath"

const (
	// MCPConfigFilename is the per-workspace MCP server document.
	MCPConfigFilename = "mcp-servers.json"
	// SkillsDirName is the per-workspace skills directory.
	SkillsDirName = "skills"
	// SkillFilename is the document inside each skill directory.
	SkillFilename = "SKILL.md"
	// DefaultSlug is the built-in workspace that can never be deleted.
	DefaultSlug = "default"
)

// Paths derives every storage location from the data directory root.
// It holds no mutable state.
type Paths struct {
	root string
}

// NewPaths returns a Paths rooted at the given data directory.
func NewPaths(root string) Paths {
	return Paths{root: root}
}

// Root returns the data directory root.
func (p Paths) Root() string {
	return p.root
}

// IndexFile is the session index document.
func (p Paths) IndexFile() string {
	return filepath.Join(p.root, "sessions", "index.json")
}

// TranscriptDir holds one NDJSON transcript per session.
func (p Paths) TranscriptDir() string {
	return filepath.Join(p.root, "sessions", "transcripts")
}

// TranscriptFile is the transcript for one session.
func (p Paths) TranscriptFile(sessionID string) string {
	return filepath.Join(p.TranscriptDir(), sessionID+".jsonl")
}

// WorkspacesDir is the root watched by the file-change notifier.
func (p Paths) WorkspacesDir() string {
	return filepath.Join(p.root, "workspaces")
}

// WorkspacesIndexFile is the workspace index document.
func (p Paths) WorkspacesIndexFile() string {
	return filepath.Join(p.WorkspacesDir(), "workspaces.json")
}

// WorkspaceDir is one workspace's root directory.
func (p Paths) WorkspaceDir(slug string) string {
	return filepath.Join(p.WorkspacesDir(), slug)
}

// MCPConfigFile is a workspace's MCP server document.
func (p Paths) MCPConfigFile(slug string) string {
	return filepath.Join(p.WorkspaceDir(slug), MCPConfigFilename)
}

// SkillsDir is a workspace's skills directory.
func (p Paths) SkillsDir(slug string) string {
	return filepath.Join(p.WorkspaceDir(slug), SkillsDirName)
}

// SkillFile is the document for one skill.
func (p Paths) SkillFile(slug, skillName string) string {
	return filepath.Join(p.SkillsDir(slug), skillName, SkillFilename)
}

// SessionDir is a workspace-scoped session working directory.
func (p Paths) SessionDir(slug, sessionID string) string {
	return filepath.Join(p.WorkspaceDir(slug), "sessions", sessionID)
}
