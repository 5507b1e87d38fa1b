package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

func (r queries) ClaimInbox(ctx context.Context, handler, eventID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `INSERT INTO inbox_messages (handler, event_id, processed_at)
		VALUES ($1, $2, $3) ON CONFLICT (handler, event_id) DO NOTHING`, handler, eventID, at)
	if err != nil {
		return false, fmt.Errorf("claim inbox %s/%s: %w", handler, eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r queries) ListInbox(ctx context.Context, handler string) ([]storage.InboxMessage, error) {
	rows, err := r.q.Query(ctx, `SELECT handler, event_id, processed_at FROM inbox_messages
		WHERE handler = $1 ORDER BY processed_at, event_id`, handler)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()

	var out []storage.InboxMessage
	for rows.Next() {
		var m storage.InboxMessage
		if err := rows.Scan(&m.Handler, &m.EventID, &m.ProcessedAt); err != nil {
			return nil, err
		}
		m.ProcessedAt = m.ProcessedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
