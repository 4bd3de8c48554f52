package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// WSStream pushes progress events over an established WebSocket connection.
// Writes are mutex-guarded because WebSocket connections do not support
// concurrent writers.
type WSStream struct {
	conn   *websocket.Conn
	logger *zap.Logger
	mu     sync.Mutex
	closed bool
}

// NewWSStream adapts an established WebSocket connection into an event
// stream. A nil logger defaults to a no-op.
func NewWSStream(conn *websocket.Conn, logger *zap.Logger) *WSStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSStream{
		conn:   conn,
		logger: logger.With(zap.String("component", "ws_event_stream")),
	}
}

// Write sends one event as a JSON text message.
func (s *WSStream) Write(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("event stream closed")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Sink returns a channel sink that forwards events to the socket. Write
// failures are logged; the producing run is never aborted by a broken
// consumer.
func (s *WSStream) Sink(ctx context.Context) Sink {
	return func(ev Event) {
		if err := s.Write(ctx, ev); err != nil {
			s.logger.Warn("websocket event push failed",
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

// Close closes the underlying connection with a normal-closure status.
// Closing twice is a no-op.
func (s *WSStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(websocket.StatusNormalClosure, "run finished")
}
