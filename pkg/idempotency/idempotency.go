package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const Header = "Idempotency-Key"

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Inbox records which (handler, event) pairs have already been applied.
// ClaimInbox inserts the pair if absent and reports whether it did.
type Inbox interface {
	ClaimInbox(ctx context.Context, handler, eventID string, at time.Time) (bool, error)
}

// Once runs effect only if (handler, eventID) has not been claimed before.
// inbox must be bound to the same transaction as effect's writes so the
// claim and the effect commit or roll back together; a failed effect must
// abort that transaction. It reports whether effect ran.
func Once(ctx context.Context, inbox Inbox, handler, eventID string, at time.Time, effect func(ctx context.Context) error) (bool, error) {
	claimed, err := inbox.ClaimInbox(ctx, handler, eventID, at)
	if err != nil {
		return false, fmt.Errorf("idempotency: claim %s/%s: %w", handler, eventID, err)
	}
	if !claimed {
		return false, nil
	}
	if err := effect(ctx); err != nil {
		return false, err
	}
	return true, nil
}
