package events

import "context"

// NoopPublisher drops every event. The server falls back to it when
// ATLAS_NATS_URL is unset.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }

var _ Publisher = (*NoopPublisher)(nil)
