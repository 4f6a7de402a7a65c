package quotes

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

// EventType tags events on a price subscription.
type EventType string

const (
	EventSnapshot  EventType = "snapshot"
	EventUpdate    EventType = "update"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message on a subscription stream.
type Event struct {
	Type   EventType          `json:"type"`
	Symbol string             `json:"symbol,omitempty"` // update only
	Price  float64            `json:"price,omitempty"`  // update only
	Prices map[string]float64 `json:"prices,omitempty"` // snapshot only
	TS     time.Time          `json:"ts"`
}

// MarshalJSON always emits prices on a snapshot, so an empty cache encodes
// as "prices":{} rather than dropping the key.
func (e Event) MarshalJSON() ([]byte, error) {
	type wire Event
	if e.Type != EventSnapshot {
		return json.Marshal(wire(e))
	}
	prices := e.Prices
	if prices == nil {
		prices = map[string]float64{}
	}
	return json.Marshal(struct {
		wire
		Prices map[string]float64 `json:"prices"`
	}{wire(e), prices})
}

// HubConfig tunes subscriber delivery.
type HubConfig struct {
	HeartbeatInterval time.Duration
	Buffer            int // per-subscriber channel capacity
	Clock             clock.Clock
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		HeartbeatInterval: 10 * time.Second,
		Buffer:            256,
	}
}

// Hub is the registry of live subscriptions. Delivery never blocks: an event
// that does not fit a subscriber's buffer is dropped for that subscriber only.
type Hub struct {
	cfg HubConfig

	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewHub(cfg HubConfig) *Hub {
	def := DefaultHubConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Hub{cfg: cfg, subs: make(map[string]*Subscription)}
}

// Subscribers reports the number of registered subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// register adds a subscription whose first event is snapshot. Callers hold
// the price cache read lock so no update can slip between the snapshot and
// the registration.
func (h *Hub) register(filter map[string]struct{}, snapshot map[string]float64) *Subscription {
	now := h.cfg.Clock.Now()
	s := &Subscription{
		id:     uuid.NewString(),
		filter: filter,
		events: make(chan Event, h.cfg.Buffer),
		done:   make(chan struct{}),
		hub:    h,
	}
	s.events <- Event{Type: EventSnapshot, Prices: snapshot, TS: now}

	ticker := h.cfg.Clock.Ticker(h.cfg.HeartbeatInterval)
	s.wg.Add(1)
	go s.heartbeat(ticker)

	h.mu.Lock()
	h.subs[s.id] = s
	n := len(h.subs)
	h.mu.Unlock()

	observ.SetGauge("quote_subscribers", float64(n), nil)
	observ.Log("quote_subscribed", map[string]any{"id": s.id, "symbols": len(filter)})
	return s
}

func (h *Hub) unregister(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s.id)
	n := len(h.subs)
	h.mu.Unlock()
	observ.SetGauge("quote_subscribers", float64(n), nil)
}

// publish fans an update out to every matching subscriber.
func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.wants(ev.Symbol) {
			s.offer(ev)
		}
	}
}

// Subscription is one consumer's stream. Close releases its heartbeat timer
// and listener registration; it is safe to call more than once.
type Subscription struct {
	id     string
	filter map[string]struct{} // nil means every symbol
	events chan Event
	done   chan struct{}
	hub    *Hub

	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Int64
}

func (s *Subscription) ID() string { return s.id }

// Events is closed after Close returns.
func (s *Subscription) Events() <-chan Event { return s.events }

// Dropped counts events discarded because the consumer fell behind.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.unregister(s)
		close(s.done)
		s.wg.Wait()
		close(s.events)
		observ.Log("quote_unsubscribed", map[string]any{"id": s.id, "dropped": s.dropped.Load()})
	})
}

func (s *Subscription) wants(symbol string) bool {
	if s.filter == nil {
		return true
	}
	_, ok := s.filter[symbol]
	return ok
}

func (s *Subscription) offer(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		observ.IncCounter("quote_events_dropped_total", map[string]string{"type": string(ev.Type)})
	}
}

func (s *Subscription) heartbeat(ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case t := <-ticker.C:
			s.offer(Event{Type: EventHeartbeat, TS: t})
		}
	}
}

// normalizeFilter upper-cases and trims symbols. An empty result means no
// filter.
func normalizeFilter(symbols []string) map[string]struct{} {
	var out map[string]struct{}
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if out == nil {
			out = make(map[string]struct{}, len(symbols))
		}
		out[sym] = struct{}{}
	}
	return out
}
