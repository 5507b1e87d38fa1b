package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

func (r queries) EnqueueOutbox(ctx context.Context, msgs ...outbox.Message) error {
	for _, m := range msgs {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO outbox_messages (id, type, key, content, occurred_at) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Type, m.Key, string(m.Content), formatTime(m.OccurredAt))
		if err != nil {
			return fmt.Errorf("enqueue outbox %s: %w", m.ID, err)
		}
	}
	return nil
}

const outboxColumns = `id, type, key, content, occurred_at, processed_at, error, attempts`

func (r queries) FetchPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	return r.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox_messages
		WHERE processed_at IS NULL ORDER BY occurred_at, seq LIMIT ?`, limit)
}

// ListOutbox returns the most recent messages, processed or not.
func (r queries) ListOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	return r.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox_messages
		ORDER BY seq DESC LIMIT ?`, limit)
}

func (r queries) queryOutbox(ctx context.Context, query string, args ...any) ([]outbox.Message, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Message
	for rows.Next() {
		var (
			m           outbox.Message
			content     string
			occurredAt  string
			processedAt sql.NullString
			errMsg      sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Type, &m.Key, &content, &occurredAt, &processedAt, &errMsg, &m.Attempts); err != nil {
			return nil, err
		}
		m.Content = []byte(content)
		if m.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			at, err := parseTime(processedAt.String)
			if err != nil {
				return nil, err
			}
			m.ProcessedAt = &at
		}
		m.Error = errMsg.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r queries) MarkOutboxProcessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE outbox_messages SET processed_at = ?, error = NULL
		WHERE id = ? AND processed_at IS NULL`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark outbox %s processed: %w", id, err)
	}
	return nil
}

func (r queries) MarkOutboxFailed(ctx context.Context, id string, reason string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE outbox_messages SET error = ?, attempts = attempts + 1
		WHERE id = ? AND processed_at IS NULL`, reason, id)
	if err != nil {
		return fmt.Errorf("mark outbox %s failed: %w", id, err)
	}
	return nil
}
