// Package search maintains a derived full-text index over session
// messages. The index is a transient projection: it is rebuilt from the
// transcripts on demand and is never the source of truth.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver with FTS5 support

	"github.com/meridianhq/agentdesk/internal/session"
	"github.com/meridianhq/agentdesk/pkg/models"
)

// Index is an FTS5 index over message content.
type Index struct {
	db *sql.DB
}

const schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	session_id UNINDEXED,
	role UNINDEXED,
	content,
	created_at UNINDEXED
);
`

// Open creates or opens the index database at path. Use ":memory:" for
// tests.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	// The index has a single writer (the rebuild/append path).
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create search schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// IndexMessage adds one message to the projection. Called after a
// successful transcript append; failures here are the caller's to log,
// not to fail the append over.
func (ix *Index) IndexMessage(ctx context.Context, sessionID string, msg models.Message) error {
	const query = `INSERT INTO messages_fts (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	_, err := ix.db.ExecContext(ctx, query, sessionID, string(msg.Role), msg.Content, msg.CreatedAt)
	return err
}

// DeleteSession drops a session's messages from the projection.
func (ix *Index) DeleteSession(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM messages_fts WHERE session_id = ?`
	_, err := ix.db.ExecContext(ctx, query, sessionID)
	return err
}

// Rebuild repopulates the whole projection from the session store.
func (ix *Index) Rebuild(ctx context.Context, store *session.Store) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM messages_fts`); err != nil {
		return fmt.Errorf("clear search index: %w", err)
	}

	count := 0
	for _, sess := range store.List() {
		for _, msg := range store.Messages(sess.ID) {
			if err := ix.IndexMessage(ctx, sess.ID, msg); err != nil {
				return fmt.Errorf("index message for %s: %w", sess.ID, err)
			}
			count++
		}
	}
	log.Info().Int("messages", count).Msg("Search index rebuilt")
	return nil
}

// Hit is one search result.
type Hit struct {
	SessionID string  `json:"sessionId"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	CreatedAt int64   `json:"createdAt"`
	Score     float64 `json:"score"`
}

// Search runs a full-text query, best matches first.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	const q = `
		SELECT session_id, role, content, created_at, bm25(messages_fts) AS score
		FROM messages_fts
		WHERE messages_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := ix.db.QueryContext(ctx, q, ftsQuote(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.SessionID, &h.Role, &h.Content, &h.CreatedAt, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuote wraps each term in double quotes so user input cannot be
// interpreted as FTS5 query syntax.
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
