// Package models contains domain models for agentdesk.
package models

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Session is one persisted agent conversation. The session index owns
// these records; UpdatedAt is refreshed on every metadata change and
// drives list ordering.
type Session struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channelId,omitempty"`
	WorkspaceID  string `json:"workspaceId,omitempty"`
	SDKSessionID string `json:"sdkSessionId,omitempty"`
	CreatedAt    int64  `json:"createdAt"` // unix millis
	UpdatedAt    int64  `json:"updatedAt"` // unix millis
}

// SessionUpdate carries a partial metadata update. Nil fields are left
// untouched by the merge.
type SessionUpdate struct {
	Title        *string `json:"title,omitempty"`
	ChannelID    *string `json:"channelId,omitempty"`
	SDKSessionID *string `json:"sdkSessionId,omitempty"`
	WorkspaceID  *string `json:"workspaceId,omitempty"`
}

// Attachment is a file or media reference carried by a message.
type Attachment struct {
	Name      string `json:"name,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Message is one transcript entry. Messages are append-only: once
// written they are never edited or removed individually.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   int64        `json:"createdAt"` // unix millis
}
