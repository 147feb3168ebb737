// Package sse implements the dashboard's push channel: a broadcaster
// that fans out metrics-snapshot events to every connected
// server-sent-events client. Rather than relaying one upstream SSE body
// to a single downstream client, this package originates events itself
// and serves many subscribers from a single in-process publisher.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
)

// DefaultBufferSize is the channel capacity given to each subscriber; a
// slow client drops events past this rather than blocking the publisher.
const DefaultBufferSize = 16

// Broadcaster fans out Publish calls to every currently-subscribed HTTP
// client as SSE "data: ..." events.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan []byte]struct{})}
}

// Publish marshals v to JSON and sends it to every currently-subscribed
// client. A marshal failure is returned to the caller; delivery never
// blocks the publisher on a slow subscriber.
func (b *Broadcaster) Publish(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: marshaling event: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- data:
		default:
			// Subscriber's buffer is full: drop this event for them
			// rather than stall every other subscriber.
		}
	}
	return nil
}

// ServeHTTP upgrades the connection to an SSE stream and forwards every
// Publish call until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan []byte, DefaultBufferSize)
	b.subscribe(ch)
	defer b.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (b *Broadcaster) subscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

func (b *Broadcaster) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, ch)
}

// SubscriberCount reports how many clients are currently connected, for
// diagnostics and tests.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
