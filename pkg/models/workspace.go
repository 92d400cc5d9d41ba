package models

// Workspace is a named, isolated working directory scoping sessions,
// MCP server configuration, and skills. Slug is filesystem-safe and
// immutable once created; Name is user-editable.
type Workspace struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"` // unix millis
	UpdatedAt int64  `json:"updatedAt"` // unix millis
}

// MCPServerType is the transport used to reach an MCP server.
type MCPServerType string

const (
	MCPServerStdio MCPServerType = "stdio"
	MCPServerHTTP  MCPServerType = "http"
	MCPServerSSE   MCPServerType = "sse"
)

// MCPServer is one entry of a workspace's MCP server map.
type MCPServer struct {
	Type    MCPServerType     `json:"type"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Enabled bool              `json:"enabled"`
}

// MCPConfig is a workspace's whole MCP server document, keyed by server
// name. Every change rewrites the entire document.
type MCPConfig struct {
	Servers map[string]MCPServer `json:"servers"`
}

// Skill is one skill directory entry: a name/description header plus a
// free-form instructional body.
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Body        string `json:"body,omitempty"`
}
