package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"
)

func (r queries) EnqueueOutbox(ctx context.Context, msgs ...outbox.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`INSERT INTO outbox_messages (id, type, key, content, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
			m.ID, m.Type, m.Key, []byte(m.Content), m.OccurredAt)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for _, m := range msgs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("enqueue outbox %s: %w", m.ID, err)
		}
	}
	return nil
}

const outboxColumns = `id, type, key, content, occurred_at, processed_at, COALESCE(error, ''), attempts`

func (r queries) FetchPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	return r.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox_messages
		WHERE processed_at IS NULL ORDER BY occurred_at, seq LIMIT $1`, limit)
}

func (r queries) ListOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	return r.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM outbox_messages ORDER BY seq DESC LIMIT $1`, limit)
}

func (r queries) queryOutbox(ctx context.Context, query string, args ...any) ([]outbox.Message, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Message
	for rows.Next() {
		var (
			m       outbox.Message
			content []byte
		)
		if err := rows.Scan(&m.ID, &m.Type, &m.Key, &content, &m.OccurredAt, &m.ProcessedAt, &m.Error, &m.Attempts); err != nil {
			return nil, err
		}
		m.Content = content
		m.OccurredAt = m.OccurredAt.UTC()
		if m.ProcessedAt != nil {
			at := m.ProcessedAt.UTC()
			m.ProcessedAt = &at
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r queries) MarkOutboxProcessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE outbox_messages SET processed_at = $1, error = NULL
		WHERE id = $2 AND processed_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("mark outbox %s processed: %w", id, err)
	}
	return nil
}

func (r queries) MarkOutboxFailed(ctx context.Context, id string, reason string) error {
	_, err := r.q.Exec(ctx, `UPDATE outbox_messages SET error = $1, attempts = attempts + 1
		WHERE id = $2 AND processed_at IS NULL`, reason, id)
	if err != nil {
		return fmt.Errorf("mark outbox %s failed: %w", id, err)
	}
	return nil
}
