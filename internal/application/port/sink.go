package port

// Sink accepts one serialized message. SSE streams, websocket connections
// and the console all implement it.
type Sink interface {
	Send(payload []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(payload []byte) error

func (f SinkFunc) Send(payload []byte) error { return f(payload) }

// Publisher fans a message out to subscribers.
type Publisher[T any] interface {
	Publish(msg T) error
}
