// Package publisher announces newly stored records to downstream consumers.
package publisher

import (
	"context"

	"go.uber.org/zap"
)

// EventRecordCreated is the event name carried by every creation notice.
const EventRecordCreated = "record.created"

// Publisher sends a payload to a topic and returns the broker message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RecordCreated is the JSON body of a creation notice.
type RecordCreated struct {
	Event       string `json:"event"`
	Source      string `json:"source"`
	ID          string `json:"id"`
	IdentityKey string `json:"identity_key"`
	Title       string `json:"title"`
}

// Notifier publishes creation notices and swallows failures.
type Notifier struct {
	pub    Publisher
	topic  string
	logger *zap.Logger
}

// NewNotifier returns a Notifier. A nil pub or empty topic yields a Notifier
// whose Created is a no-op.
func NewNotifier(pub Publisher, topic string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{pub: pub, topic: topic, logger: logger}
}

// Created publishes one notice per record and returns how many were accepted.
func (n *Notifier) Created(ctx context.Context, notices []RecordCreated) int {
	if n == nil || n.pub == nil || n.topic == "" {
		return 0
	}
	sent := 0
	for _, notice := range notices {
		notice.Event = EventRecordCreated
		id, err := n.pub.Publish(ctx, n.topic, notice)
		if err != nil {
			n.logger.Warn("publish record.created failed",
				zap.String("source", notice.Source),
				zap.String("id", notice.ID),
				zap.Error(err))
			continue
		}
		sent++
		n.logger.Debug("published record.created", zap.String("id", notice.ID), zap.String("message_id", id))
	}
	return sent
}
