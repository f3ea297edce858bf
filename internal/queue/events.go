package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nimasrn/debt-tracker/internal/model"
)

// EventPublisher writes ledger events onto a stream queue.
type EventPublisher struct {
	queue *Queue
}

func NewEventPublisher(q *Queue) *EventPublisher {
	return &EventPublisher{queue: q}
}

func (p *EventPublisher) Publish(ctx context.Context, event *model.LedgerEvent) error {
	_, err := p.queue.PublishJSON(ctx, event, map[string]string{"type": string(event.Type)})
	return err
}

func DecodeEvent(msg *Message) (*model.LedgerEvent, error) {
	var event model.LedgerEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return nil, fmt.Errorf("decode ledger event %s: %w", msg.ID, err)
	}
	return &event, nil
}
