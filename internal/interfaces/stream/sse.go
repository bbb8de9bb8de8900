package stream

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HeartbeatInterval 空闲连接的心跳间隔
const HeartbeatInterval = 25 * time.Second

var (
	ErrStreamingUnsupported = errors.New("streaming unsupported")
	ErrSinkClosed           = errors.New("sink closed")
)

// sseWriteWait bounds one event write. A client that stops reading makes the
// write time out instead of holding up the publisher.
var sseWriteWait = writeWait

// SSESink frames each payload as one server-sent event.
type SSESink struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	rc     *http.ResponseController
	closed bool

	failOnce sync.Once
	failed   chan struct{} // closed after the first write error
}

// NewSSESink writes the event-stream headers and flushes them so the client
// sees the stream open before the first event.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamingUnsupported, err)
	}
	return &SSESink{w: w, rc: rc, failed: make(chan struct{})}, nil
}

func (s *SSESink) Send(payload []byte) error {
	return s.write("data: %s\n\n", payload)
}

// heartbeat writes an SSE comment line, ignored by clients.
func (s *SSESink) heartbeat() error {
	return s.write(": ping\n\n")
}

// write fails fast once an earlier write failed; the connection is unusable
// and ServeSSE is already tearing the stream down.
func (s *SSESink) write(format string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case <-s.failed:
		return ErrSinkClosed
	default:
	}

	// recorders and some wrappers cannot set deadlines; write without one there
	if err := s.rc.SetWriteDeadline(time.Now().Add(sseWriteWait)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return s.fail(err)
	}
	if _, err := fmt.Fprintf(s.w, format, args...); err != nil {
		return s.fail(err)
	}
	if err := s.rc.Flush(); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *SSESink) fail(err error) error {
	s.failOnce.Do(func() { close(s.failed) })
	return err
}

// Failed is closed once a write has failed.
func (s *SSESink) Failed() <-chan struct{} { return s.failed }

// Close detaches the sink from the response writer; later sends fail.
func (s *SSESink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// ServeSSE streams src to the client until the request ends or src is done.
func ServeSSE(w http.ResponseWriter, r *http.Request, src Source) {
	sink, err := NewSSESink(w)
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("sse stream failed")
		return
	}
	defer sink.Close()

	cancel, err := src.Subscribe(r.Context(), sink)
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("sse subscribe failed")
		return
	}
	defer cancel()

	log.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("sse client connected")

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("sse client disconnected")
			return
		case <-src.Done():
			return
		case <-sink.Failed():
			log.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("sse client stalled, dropping")
			return
		case <-ticker.C:
			if err := sink.heartbeat(); err != nil {
				return
			}
		}
	}
}
