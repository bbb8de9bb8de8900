package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSSink writes each payload as one text frame.
type WSSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

func (s *WSSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close stops further writes; the connection itself is closed by ServeWS.
func (s *WSSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// ServeWS upgrades the request and streams src until the peer goes away or
// src is done. Inbound frames are read and dropped so control frames are handled.
func ServeWS(w http.ResponseWriter, r *http.Request, src Source) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sink := NewWSSink(conn)
	defer sink.Close()
	cancel, err := src.Subscribe(r.Context(), sink)
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("websocket subscribe failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		return
	}
	defer cancel()

	log.Debug().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("websocket client connected")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case err := <-errCh:
			log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket client disconnected")
			return
		case <-src.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
