// Package broadcast fans messages out to long-lived subscribers.
package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"livefeed/internal/application/port"
)

// Observer receives delivery statistics. Metrics implement it.
type Observer interface {
	Published(hub string, sinks int)
	SinkFailed(hub string)
	Subscribers(hub string, n int)
}

type noopObserver struct{}

func (noopObserver) Published(string, int)   {}
func (noopObserver) SinkFailed(string)       {}
func (noopObserver) Subscribers(string, int) {}

// Subscription is the handle returned by Subscribe. Identity is the pointer.
type Subscription struct {
	sink port.Sink
}

type Option func(*options)

type options struct {
	observer Observer
}

func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// Hub delivers every published message to every registered sink, in
// registration order. Publish calls are serialized so all sinks observe the
// same sequence.
type Hub[T any] struct {
	name     string
	observer Observer

	pubMu sync.Mutex // orders Publish calls

	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
	done   chan struct{}
}

func New[T any](name string, opts ...Option) *Hub[T] {
	o := options{observer: noopObserver{}}
	for _, fn := range opts {
		fn(&o)
	}
	return &Hub[T]{
		name:     name,
		observer: o.observer,
		done:     make(chan struct{}),
	}
}

func (h *Hub[T]) Name() string { return h.name }

// Subscribe registers sink. The hub does not dedupe: subscribing the same
// sink twice delivers twice. On a closed hub the returned handle is inert.
func (h *Hub[T]) Subscribe(sink port.Sink) *Subscription {
	sub := &Subscription{sink: sink}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return sub
	}
	h.subs = append(h.subs, sub)
	n := len(h.subs)
	h.mu.Unlock()

	h.observer.Subscribers(h.name, n)
	log.Debug().Str("hub", h.name).Int("subscribers", n).Msg("subscriber added")
	return sub
}

// Unsubscribe removes the subscription. Unknown or repeated handles are ignored.
func (h *Hub[T]) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	idx := -1
	for i, s := range h.subs {
		if s == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return
	}
	// copy-on-write so an in-flight Publish keeps iterating its own slice
	next := make([]*Subscription, 0, len(h.subs)-1)
	next = append(next, h.subs[:idx]...)
	next = append(next, h.subs[idx+1:]...)
	h.subs = next
	n := len(h.subs)
	h.mu.Unlock()

	h.observer.Subscribers(h.name, n)
	log.Debug().Str("hub", h.name).Int("subscribers", n).Msg("subscriber removed")
}

// Publish serializes msg once and offers the payload to each current sink.
// A failing sink is logged and skipped; it stays subscribed. The only error
// returned is a serialization failure.
func (h *Hub[T]) Publish(msg T) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: encode message: %w", h.name, err)
	}

	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := deliver(sub.sink, payload); err != nil {
			h.observer.SinkFailed(h.name)
			log.Warn().Str("hub", h.name).Err(err).Msg("sink delivery failed")
		}
	}
	h.observer.Published(h.name, len(subs))
	return nil
}

func deliver(sink port.Sink, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Send(payload)
}

// Len returns the current number of subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Done is closed by Close. Transports use it to end their streams.
func (h *Hub[T]) Done() <-chan struct{} {
	return h.done
}

// Close drops every subscription. Later publishes reach nobody.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.subs = nil
	close(h.done)
	h.mu.Unlock()

	h.observer.Subscribers(h.name, 0)
	log.Info().Str("hub", h.name).Msg("hub closed")
}

var _ port.Publisher[int] = (*Hub[int])(nil)
