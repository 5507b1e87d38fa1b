package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

type Message struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Key         string          `json:"key"`
	Content     json.RawMessage `json:"content"`
	OccurredAt  time.Time       `json:"occurred_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
}

// NewMessage serializes payload for the outbox. key groups messages that
// must be handled in order (the aggregate id).
func NewMessage(id, eventType, key string, occurredAt time.Time, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("outbox: encode %s: %w", eventType, err)
	}
	return Message{
		ID:         id,
		Type:       eventType,
		Key:        key,
		Content:    data,
		OccurredAt: occurredAt.UTC(),
	}, nil
}
