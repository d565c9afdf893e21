// internal/handlers/ws_client.go
package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

var errSendQueueFull = errors.New("send queue full")
var errClientClosed = errors.New("client closed")

// wsClient adapts a coder/websocket connection to the Conn interface the
// registry and relay fan out over. Writes go through a bounded channel
// drained by a single write pump, so a slow client shows up as a send
// error instead of stalling a broadcast.
type wsClient struct {
	c    *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(c *websocket.Conn) *wsClient {
	return &wsClient{
		c:    c,
		out:  make(chan []byte, 32),
		done: make(chan struct{}),
	}
}

func (w *wsClient) Send(ctx context.Context, payload []byte) error {
	select {
	case <-w.done:
		return errClientClosed
	case <-ctx.Done():
		return ctx.Err()
	case w.out <- payload:
		return nil
	default:
		return errSendQueueFull
	}
}

func (w *wsClient) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.c.Close(websocket.StatusNormalClosure, "closed by server")
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with periodic pings. Exactly one pump runs per client;
// it exits on the first write failure and lets the read side observe the
// closure.
func (w *wsClient) writePump(ctx context.Context, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case data := <-w.out:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := w.c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := w.c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("websocket ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}
