package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// sseRingBufferSize is how many recent events are kept for
	// Last-Event-ID replay.
	sseRingBufferSize = 1000

	// sseClientBuffer bounds the events queued for one client.
	sseClientBuffer = 64

	sseKeepaliveInterval = 15 * time.Second
)

// sseEvent is one hub event. ID is zero only for the synthetic initial state
// of a view stream.
type sseEvent struct {
	ID    uint64
	Topic string // "views.<id>.<name>"
	Name  string // event name within the view, e.g. "render.frame"
	Data  []byte // JSON payload
}

// eventRing keeps the newest sseRingBufferSize events in publish order.
type eventRing struct {
	mu   sync.RWMutex
	buf  [sseRingBufferSize]sseEvent
	next int
	full bool
}

func (r *eventRing) push(evt sseEvent) {
	r.mu.Lock()
	r.buf[r.next] = evt
	r.next++
	if r.next == sseRingBufferSize {
		r.next, r.full = 0, true
	}
	r.mu.Unlock()
}

// since returns the kept events with ID greater than lastID, oldest first.
func (r *eventRing) since(lastID uint64) []*sseEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, first := r.next, 0
	if r.full {
		n, first = sseRingBufferSize, r.next
	}
	var out []*sseEvent
	for i := range n {
		evt := r.buf[(first+i)%sseRingBufferSize]
		if evt.ID > lastID {
			out = append(out, &evt)
		}
	}
	return out
}

// topicFilter is a set of topic patterns. An empty filter matches everything.
type topicFilter []string

func (f topicFilter) match(topic string) bool {
	if len(f) == 0 {
		return true
	}
	return slices.ContainsFunc(f, func(pattern string) bool {
		return matchTopicPattern(pattern, topic)
	})
}

// matchTopicPattern matches dot-separated topics NATS-style: "*" matches one
// segment and a trailing ">" matches one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, seg := range pat {
		switch {
		case seg == ">":
			return i < len(top)
		case i >= len(top):
			return false
		case seg != "*" && seg != top[i]:
			return false
		}
	}
	return len(pat) == len(top)
}

// sseClient is one connected stream.
type sseClient struct {
	topics topicFilter
	short  bool // name events by Name instead of Topic
	ch     chan *sseEvent
}

func (c *sseClient) matchesTopic(topic string) bool { return c.topics.match(topic) }

// sseHub fans view events out to stream clients and remembers recent ones
// for replay. Slow clients miss events instead of blocking broadcasters.
type sseHub struct {
	nextID atomic.Uint64
	ring   eventRing

	mu      sync.RWMutex
	clients map[*sseClient]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

func (h *sseHub) broadcast(topic, name string, payload []byte) {
	evt := &sseEvent{ID: h.nextID.Add(1), Topic: topic, Name: name, Data: payload}
	h.ring.push(*evt)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matchesTopic(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan *sseEvent, sseClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// eventsSince returns the kept events after lastID. Events older than the
// ring are gone.
func (h *sseHub) eventsSince(lastID uint64) []*sseEvent {
	return h.ring.since(lastID)
}

// viewTopic is the hub topic of a view event.
func viewTopic(viewID, name string) string {
	return "views." + viewID + "." + name
}

// handleEventStream handles GET /v1/events/stream, the firehose across all
// views. The optional ?topics= filter takes comma-separated topic patterns.
func (s *ViewServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, parseTopics(r.URL.Query().Get("topics")), false, nil)
}

func parseTopics(q string) []string {
	var topics []string
	for t := range strings.SplitSeq(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// handleViewStream handles GET /v1/views/{id}/stream. The current state is
// sent first, then every event of the view until it closes.
func (s *ViewServer) handleViewStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.Snapshot(id)
	if err != nil {
		writeViewError(w, err)
		return
	}
	s.Presence.Touch(id, "stream")
	initial, err := json.Marshal(snap)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.serveSSE(w, r, []string{viewTopic(id, ">")}, true, &sseEvent{Name: EventViewState, Data: initial})
}

// sseStream writes events for one client and flushes after each batch.
type sseStream struct {
	w      io.Writer
	f      http.Flusher
	client *sseClient
}

func (st *sseStream) send(evts ...*sseEvent) {
	for _, evt := range evts {
		st.client.write(st.w, evt)
	}
	st.f.Flush()
}

// replay sends the kept events after the client's Last-Event-ID. A missing
// or malformed header replays nothing.
func (st *sseStream) replay(hub *sseHub, lastEventID string) {
	lastID, err := strconv.ParseUint(lastEventID, 10, 64)
	if err != nil {
		return
	}
	var missed []*sseEvent
	for _, evt := range hub.eventsSince(lastID) {
		if st.client.matchesTopic(evt.Topic) {
			missed = append(missed, evt)
		}
	}
	st.send(missed...)
}

// serveSSE streams hub events matching topics until the client disconnects
// or the server stops. initial, when set, is written before any replay.
// Short streams end after their view closes.
func (s *ViewServer) serveSSE(w http.ResponseWriter, r *http.Request, topics []string, short bool, initial *sseEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client := s.sseHub.subscribe(topics)
	client.short = short
	defer s.sseHub.unsubscribe(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	st := &sseStream{w: w, f: flusher, client: client}
	if initial != nil {
		st.send(initial)
	} else {
		st.send()
	}
	st.replay(s.sseHub, r.Header.Get("Last-Event-ID"))

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.ctx.Done():
			return
		case evt := <-client.ch:
			st.send(evt)
			if short && evt.Name == EventViewClosed {
				return
			}
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// write formats one event. Events without an ID (the initial state) carry no
// id field so they do not move the client's Last-Event-ID.
func (c *sseClient) write(w io.Writer, evt *sseEvent) {
	if evt.ID > 0 {
		fmt.Fprintf(w, "id:%d\n", evt.ID)
	}
	name := evt.Topic
	if c.short || name == "" {
		name = evt.Name
	}
	fmt.Fprintf(w, "event:%s\ndata:%s\n\n", name, evt.Data)
}
