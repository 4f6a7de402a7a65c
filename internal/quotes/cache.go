package quotes

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

var (
	ErrInvalidPrice  = errors.New("price must be a positive finite number")
	ErrInvalidSymbol = errors.New("empty symbol")
)

// PriceCache holds the last traded price per symbol. SetPrice is the only
// way in; every accepted write is pushed to the hub.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]float64
	hub    *Hub
}

func NewPriceCache(hub *Hub) *PriceCache {
	if hub == nil {
		hub = NewHub(HubConfig{})
	}
	return &PriceCache{prices: make(map[string]float64), hub: hub}
}

// Hub returns the broadcast hub fed by this cache.
func (c *PriceCache) Hub() *Hub { return c.hub }

// SetPrice overwrites the entry for symbol and notifies subscribers. The
// write lock is held across the notification so updates for one symbol
// reach every subscriber in call order.
func (c *PriceCache) SetPrice(symbol string, price float64) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ErrInvalidSymbol
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		observ.IncCounter("quote_rejected_total", map[string]string{"symbol": symbol})
		return fmt.Errorf("%s: %w (got %v)", symbol, ErrInvalidPrice, price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
	c.hub.publish(Event{
		Type:   EventUpdate,
		Symbol: symbol,
		Price:  price,
		TS:     c.hub.cfg.Clock.Now(),
	})
	return nil
}

// OnTick is the entrypoint for market-data adapters.
func (c *PriceCache) OnTick(symbol string, price float64) error {
	return c.SetPrice(symbol, price)
}

// Get returns the last price for symbol. ok is false when no price is known.
func (c *PriceCache) Get(symbol string) (price float64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	price, ok = c.prices[strings.ToUpper(strings.TrimSpace(symbol))]
	return price, ok
}

// Prices returns known prices for symbols; unknown symbols are absent from
// the result. A nil or empty list returns every cached price.
func (c *PriceCache) Prices(symbols []string) map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(normalizeFilter(symbols))
}

func (c *PriceCache) snapshotLocked(filter map[string]struct{}) map[string]float64 {
	out := make(map[string]float64)
	for sym, px := range c.prices {
		if filter != nil {
			if _, ok := filter[sym]; !ok {
				continue
			}
		}
		out[sym] = px
	}
	return out
}

// Subscribe opens a price stream. The first event is a snapshot of cached
// prices matching symbols (every symbol when symbols is empty), followed by
// matching updates and periodic heartbeats until Close.
func (c *PriceCache) Subscribe(symbols []string) *Subscription {
	filter := normalizeFilter(symbols)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub.register(filter, c.snapshotLocked(filter))
}
