package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/hoangvu1420/YummyZoom-sub001/internal/storage"
)

func (r queries) ClaimInbox(ctx context.Context, handler, eventID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO inbox_messages (handler, event_id, processed_at)
		VALUES (?, ?, ?) ON CONFLICT (handler, event_id) DO NOTHING`, handler, eventID, formatTime(at))
	if err != nil {
		return false, fmt.Errorf("claim inbox %s/%s: %w", handler, eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r queries) ListInbox(ctx context.Context, handler string) ([]storage.InboxMessage, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT handler, event_id, processed_at FROM inbox_messages
		WHERE handler = ? ORDER BY processed_at, event_id`, handler)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()

	var out []storage.InboxMessage
	for rows.Next() {
		var (
			m  storage.InboxMessage
			at string
		)
		if err := rows.Scan(&m.Handler, &m.EventID, &at); err != nil {
			return nil, err
		}
		if m.ProcessedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
