package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"livefeed/internal/application/port"
)

// Sink 把每条消息打印成一行：时间戳 + 原始 JSON
type Sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func NewSink(out io.Writer) port.Sink {
	if out == nil {
		out = os.Stdout
	}
	return &Sink{out: out, now: time.Now}
}

func (s *Sink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "%s %s\n", s.now().Format("2006-01-02 15:04:05"), payload)
	return err
}
