package adapters

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

// WSTicker streams last-traded prices from a broker websocket that speaks
// JSON LTP frames, and funnels them into a PriceSink. It reconnects after a
// fixed delay whenever the connection drops.
type WSTicker struct {
	config WSTickerConfig
	sink   PriceSink
	dialer *websocket.Dialer
	clock  clock.Clock
	tokens []int64
	state  int32 // atomic ConnectionState

	ticksApplied atomic.Int64
	reconnects   atomic.Int64
}

// WSTickerConfig configures the broker ticker connection.
type WSTickerConfig struct {
	URL            string
	APIKey         string
	AccessToken    string
	Instruments    map[string]string // instrument token -> symbol
	ReconnectDelay time.Duration
	Clock          clock.Clock
}

type tickFrame struct {
	Ticks []struct {
		InstrumentToken int64   `json:"instrument_token"`
		LastPrice       float64 `json:"last_price"`
	} `json:"ticks"`
}

type controlFrame struct {
	A string `json:"a"`
	V any    `json:"v"`
}

func NewWSTicker(sink PriceSink, config WSTickerConfig) (*WSTicker, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("ticker url is required")
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	tokens := make([]int64, 0, len(config.Instruments))
	for tok := range config.Instruments {
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("instrument token %q: %w", tok, err)
		}
		tokens = append(tokens, n)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	t := &WSTicker{
		config: config,
		sink:   sink,
		dialer: websocket.DefaultDialer,
		clock:  config.Clock,
		tokens: tokens,
	}
	atomic.StoreInt32(&t.state, int32(StateDisconnected))
	return t, nil
}

// ConnectionState returns current connection state
func (t *WSTicker) ConnectionState() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&t.state))
}

// TicksApplied counts ticks accepted by the sink.
func (t *WSTicker) TicksApplied() int64 { return t.ticksApplied.Load() }

// Run connects and consumes until ctx is cancelled.
func (t *WSTicker) Run(ctx context.Context) error {
	for {
		atomic.StoreInt32(&t.state, int32(StateConnecting))
		err := t.connectAndConsume(ctx)
		atomic.StoreInt32(&t.state, int32(StateDisconnected))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observ.LogWarn("ticker_disconnected", map[string]any{
			"error":    fmt.Sprint(err),
			"retry_in": t.config.ReconnectDelay.String(),
		})
		observ.IncCounter("ticker_reconnects_total", nil)
		t.reconnects.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(t.config.ReconnectDelay):
		}
	}
}

func (t *WSTicker) endpoint() (string, error) {
	u, err := url.Parse(t.config.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if t.config.APIKey != "" {
		q.Set("api_key", t.config.APIKey)
	}
	if t.config.AccessToken != "" {
		q.Set("access_token", t.config.AccessToken)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (t *WSTicker) connectAndConsume(ctx context.Context) error {
	endpoint, err := t.endpoint()
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	conn, _, err := t.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when ctx ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if len(t.tokens) > 0 {
		if err := conn.WriteJSON(controlFrame{A: "subscribe", V: t.tokens}); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		if err := conn.WriteJSON(controlFrame{A: "mode", V: []any{"ltp", t.tokens}}); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
	}

	atomic.StoreInt32(&t.state, int32(StateConnected))
	observ.Log("ticker_connected", map[string]any{"instruments": len(t.tokens)})

	for {
		var frame tickFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		t.apply(frame)
	}
}

func (t *WSTicker) apply(frame tickFrame) {
	for _, tick := range frame.Ticks {
		sym, ok := t.config.Instruments[strconv.FormatInt(tick.InstrumentToken, 10)]
		if !ok || tick.LastPrice <= 0 {
			continue
		}
		if err := t.sink.SetPrice(sym, tick.LastPrice); err != nil {
			observ.LogError("ticker_tick_rejected", err, map[string]any{"symbol": sym})
			continue
		}
		t.ticksApplied.Add(1)
	}
}
