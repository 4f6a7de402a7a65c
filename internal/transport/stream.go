package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Rajchodisetti/newsdesk/internal/observ"
	"github.com/Rajchodisetti/newsdesk/internal/quotes"
)

const wsWriteTimeout = 5 * time.Second

// streamQuotesSSE relays a price subscription as Server-Sent Events. The
// subscription is closed as soon as the client disconnects.
func (s *Server) streamQuotesSSE(c *gin.Context) {
	syms, ok := s.symbols(c)
	if !ok {
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	sub := s.Desk.SubscribePrices(syms)
	defer sub.Close()
	observ.IncCounter("stream_connections_total", map[string]string{"transport": "sse"})
	s.Logger.Debug("sse_client_connected", zap.String("sub", sub.ID()), zap.Strings("symbols", syms))

	ctx := c.Request.Context()
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			seq++
			if err := writeEvent(w, seq, ev); err != nil {
				s.Logger.Debug("sse_write_failed", zap.String("sub", sub.ID()), zap.Error(err))
				return
			}
			w.Flush()
		}
	}
}

// writeEvent writes a single SSE frame.
func writeEvent(w io.Writer, seq uint64, ev quotes.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", seq); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return nil
}

// streamQuotesWS is the websocket variant of the price stream. Each event is
// one JSON text message.
func (s *Server) streamQuotesWS(c *gin.Context) {
	syms, ok := s.symbols(c)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.Logger.Debug("ws_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.Desk.SubscribePrices(syms)
	defer sub.Close()
	observ.IncCounter("stream_connections_total", map[string]string{"transport": "ws"})
	s.Logger.Debug("ws_client_connected", zap.String("sub", sub.ID()), zap.Strings("symbols", syms))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Read pump: the client never sends anything we need, but reading is how
	// a close frame or dropped connection is noticed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.Logger.Debug("ws_write_failed", zap.String("sub", sub.ID()), zap.Error(err))
				return
			}
		}
	}
}
