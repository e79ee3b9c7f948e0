package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yichen-ai/yichen/internal/assistant"
	"github.com/yichen-ai/yichen/internal/provider"
)

// Message is one persisted chat turn, with whatever structured payloads
// the turn produced.
type Message struct {
	ID        uuid.UUID             `json:"id"`
	Role      string                `json:"role"` // "user" | "model"
	Content   string                `json:"content"`
	Batch     []assistant.BatchItem `json:"batchData,omitempty"`
	Timeline  *assistant.Timeline   `json:"timelineData,omitempty"`
	Sources   []provider.Citation   `json:"sources,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// SaveMessage appends one chat turn to the history.
func (s *Store) SaveMessage(ctx context.Context, msg Message) (uuid.UUID, error) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	batch, err := jsonbOrNil(msg.Batch)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal batch: %w", err)
	}
	timeline, err := jsonbOrNil(msg.Timeline)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal timeline: %w", err)
	}
	sources, err := jsonbOrNil(msg.Sources)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal sources: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO messages (id, role, content, batch, timeline, sources, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		msg.ID, msg.Role, msg.Content, batch, timeline, sources,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert message: %w", err)
	}
	return msg.ID, nil
}

// ListMessages returns the most recent limit turns, oldest first.
func (s *Store) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, role, content, batch, timeline, sources, created_at
		FROM (
			SELECT * FROM messages ORDER BY created_at DESC LIMIT $1
		) recent
		ORDER BY created_at ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg                      Message
			batch, timeline, sources []byte
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &batch, &timeline, &sources, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if batch != nil {
			if err := json.Unmarshal(batch, &msg.Batch); err != nil {
				return nil, fmt.Errorf("unmarshal batch: %w", err)
			}
		}
		if timeline != nil {
			if err := json.Unmarshal(timeline, &msg.Timeline); err != nil {
				return nil, fmt.Errorf("unmarshal timeline: %w", err)
			}
		}
		if sources != nil {
			if err := json.Unmarshal(sources, &msg.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// jsonbOrNil marshals v for a JSONB column, keeping the column NULL when
// there is nothing to store.
func jsonbOrNil(v any) ([]byte, error) {
	switch val := v.(type) {
	case []assistant.BatchItem:
		if len(val) == 0 {
			return nil, nil
		}
	case []provider.Citation:
		if len(val) == 0 {
			return nil, nil
		}
	case *assistant.Timeline:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
