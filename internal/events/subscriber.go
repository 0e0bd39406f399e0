package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// PayloadHandler loads one inbound payload.
type PayloadHandler func(ctx context.Context, p Payload) error

// ConsumePayloads subscribes to subject and hands every decodable payload to
// handle until ctx is done. Undecodable messages and handler errors are
// logged and skipped.
func ConsumePayloads(ctx context.Context, sub Subscriber, subject string, handle PayloadHandler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ch, cancel, err := sub.Subscribe(subject)
	if err != nil {
		return fmt.Errorf("subscribing to payloads: %w", err)
	}
	defer cancel()

	logger.Info("payload ingestion started", "subject", subject)
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			p, err := DecodePayload(data)
			if err != nil {
				logger.Warn("dropping payload", "err", err)
				continue
			}
			if err := handle(ctx, p); err != nil {
				logger.Warn("loading payload", "view_id", p.ViewID, "err", err)
			}
		}
	}
}

// DecodePayload parses a payload message. It requires a view id and content.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decoding payload: %w", err)
	}
	if strings.TrimSpace(p.ViewID) == "" {
		return Payload{}, fmt.Errorf("payload without view_id")
	}
	if len(p.Content) == 0 {
		return Payload{}, fmt.Errorf("payload for %s without content", p.ViewID)
	}
	return p, nil
}

// PayloadSubject returns the subject a payload for viewID is published on.
func PayloadSubject(viewID string) string {
	return PayloadSubjectPrefix + viewID
}
