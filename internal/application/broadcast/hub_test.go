package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livefeed/internal/application/port"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (s *recordingSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, string(payload))
	return s.err
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

type countingObserver struct {
	published, failed, subscribers int
}

func (o *countingObserver) Published(string, int)       { o.published++ }
func (o *countingObserver) SinkFailed(string)           { o.failed++ }
func (o *countingObserver) Subscribers(_ string, n int) { o.subscribers = n }

type tick struct {
	N int `json:"n"`
}

func TestHubDeliversOnlyWhileSubscribed(t *testing.T) {
	h := New[tick]("test")
	sink := &recordingSink{}

	require.NoError(t, h.Publish(tick{N: 1}))
	sub := h.Subscribe(sink)
	require.NoError(t, h.Publish(tick{N: 2}))
	require.NoError(t, h.Publish(tick{N: 3}))
	h.Unsubscribe(sub)
	require.NoError(t, h.Publish(tick{N: 4}))

	assert.Equal(t, []string{`{"n":2}`, `{"n":3}`}, sink.messages())
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	h := New[tick]("test")
	sub := h.Subscribe(&recordingSink{})
	other := h.Subscribe(&recordingSink{})

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)
	h.Unsubscribe(&Subscription{})

	assert.Equal(t, 1, h.Len())
	h.Unsubscribe(other)
	assert.Equal(t, 0, h.Len())
}

func TestHubSameSinkTwiceReceivesTwice(t *testing.T) {
	h := New[tick]("test")
	sink := &recordingSink{}
	first := h.Subscribe(sink)
	h.Subscribe(sink)

	require.NoError(t, h.Publish(tick{N: 1}))
	assert.Len(t, sink.messages(), 2)

	h.Unsubscribe(first)
	require.NoError(t, h.Publish(tick{N: 2}))
	assert.Len(t, sink.messages(), 3)
}

func TestHubIsolatesFailingSinks(t *testing.T) {
	obs := &countingObserver{}
	h := New[tick]("test", WithObserver(obs))

	failing := &recordingSink{err: errors.New("broken pipe")}
	panicking := port.SinkFunc(func([]byte) error { panic("boom") })
	healthy := &recordingSink{}

	h.Subscribe(failing)
	h.Subscribe(panicking)
	h.Subscribe(healthy)

	require.NoError(t, h.Publish(tick{N: 1}))
	require.NoError(t, h.Publish(tick{N: 2}))

	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, healthy.messages())
	assert.Len(t, failing.messages(), 2)
	assert.Equal(t, 3, h.Len(), "failing sinks stay subscribed")
	assert.Equal(t, 4, obs.failed)
	assert.Equal(t, 2, obs.published)
}

func TestHubDeliversInRegistrationOrder(t *testing.T) {
	h := New[tick]("test")
	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"a", "b", "c"} {
		h.Subscribe(port.SinkFunc(func([]byte) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}))
	}

	require.NoError(t, h.Publish(tick{N: 1}))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestHubSinkCanUnsubscribeDuringDelivery(t *testing.T) {
	h := New[tick]("test")
	var sub *Subscription
	sub = h.Subscribe(port.SinkFunc(func([]byte) error {
		h.Unsubscribe(sub)
		return nil
	}))
	after := &recordingSink{}
	h.Subscribe(after)

	require.NoError(t, h.Publish(tick{N: 1}))
	assert.Len(t, after.messages(), 1)
	assert.Equal(t, 1, h.Len())
}

func TestHubConcurrentPublishersKeepOneOrder(t *testing.T) {
	h := New[tick]("test")
	a, b := &recordingSink{}, &recordingSink{}
	h.Subscribe(a)
	h.Subscribe(b)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = h.Publish(tick{N: n})
		}(i)
	}
	wg.Wait()

	require.Len(t, a.messages(), 50)
	assert.Equal(t, a.messages(), b.messages())
}

func TestHubEncodeFailure(t *testing.T) {
	h := New[any]("test")
	sink := &recordingSink{}
	h.Subscribe(sink)

	err := h.Publish(make(chan int))
	require.Error(t, err)
	assert.Empty(t, sink.messages())
}

func TestHubClose(t *testing.T) {
	h := New[tick]("test")
	sink := &recordingSink{}
	h.Subscribe(sink)

	h.Close()
	h.Close()

	select {
	case <-h.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.Equal(t, 0, h.Len())

	h.Subscribe(sink)
	require.NoError(t, h.Publish(tick{N: 1}))
	assert.Empty(t, sink.messages())
}

func ExampleHub() {
	h := New[tick]("prices")
	sub := h.Subscribe(port.SinkFunc(func(p []byte) error {
		fmt.Println(string(p))
		return nil
	}))
	_ = h.Publish(tick{N: 7})
	h.Unsubscribe(sub)
	_ = h.Publish(tick{N: 8})
	// Output: {"n":7}
}
