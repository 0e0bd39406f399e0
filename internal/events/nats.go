package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriptionBuffer bounds the messages queued for a slow consumer.
const subscriptionBuffer = 64

const closeFlushTimeout = 2 * time.Second

// dial connects with reconnection enabled. opts are applied after the
// defaults so callers can override them.
func dial(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	defaults := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded events on NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, "atlas-publisher", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// PublishPayload sends a graph payload to the view's payload subject.
func (p *NATSPublisher) PublishPayload(ctx context.Context, pl Payload) error {
	return p.Publish(ctx, PayloadSubject(pl.ViewID), pl)
}

// Close flushes buffered events before disconnecting. Closing twice is
// harmless.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(closeFlushTimeout)
	p.conn.Close()
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("flushing events: %w", err)
	}
	return nil
}

// NATSSubscriber delivers raw messages from NATS subjects.
type NATSSubscriber struct {
	conn    *nats.Conn
	dropped atomic.Uint64
}

// NewNATSSubscriber connects with automatic reconnection. Extra options such
// as disconnect and reconnect handlers are appended to the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := dial(url, "atlas-subscriber", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Dropped returns how many messages were discarded because a consumer fell
// behind.
func (s *NATSSubscriber) Dropped() uint64 { return s.dropped.Load() }

// subscription fans NATS callbacks into a bounded channel until cancelled.
type subscription struct {
	mu     sync.Mutex
	closed bool
	ch     chan []byte
	once   sync.Once
	sub    *nats.Subscription
}

func (sub *subscription) deliver(data []byte) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return true
	}
	select {
	case sub.ch <- data:
		return true
	default:
		return false
	}
}

func (sub *subscription) cancel() {
	sub.once.Do(func() {
		if sub.sub != nil {
			_ = sub.sub.Unsubscribe()
		}
		sub.mu.Lock()
		sub.closed = true
		close(sub.ch)
		sub.mu.Unlock()
	})
}

// Subscribe returns a channel of raw payloads for topic, which may hold NATS
// wildcards such as "atlas.payload.>". The channel closes when the returned
// cancel function runs.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	sub := &subscription{ch: make(chan []byte, subscriptionBuffer)}

	ns, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if !sub.deliver(msg.Data) {
			s.dropped.Add(1)
		}
	})
	if err != nil {
		sub.cancel()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	sub.sub = ns

	// The subscription must reach the server before messages published on
	// other connections are routed to it.
	if err := s.conn.Flush(); err != nil {
		sub.cancel()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return sub.ch, sub.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
