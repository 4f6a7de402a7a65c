package quotes

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*PriceCache, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 10, 16, 9, 15, 0, 0, time.UTC))
	hub := NewHub(HubConfig{HeartbeatInterval: 10 * time.Second, Buffer: 16, Clock: clk})
	return NewPriceCache(hub), clk
}

func TestSetPriceLastWriteWins(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok := c.Get("TCS")
	assert.False(t, ok, "absent key means no known price")

	require.NoError(t, c.SetPrice("TCS", 4050))
	require.NoError(t, c.SetPrice("tcs ", 4051.5))

	px, ok := c.Get("TCS")
	require.True(t, ok)
	assert.Equal(t, 4051.5, px)
}

func TestSetPriceRejectsInvalid(t *testing.T) {
	c, _ := newTestCache(t)

	tests := []struct {
		name   string
		symbol string
		price  float64
		want   error
	}{
		{"zero", "TCS", 0, ErrInvalidPrice},
		{"negative", "TCS", -1, ErrInvalidPrice},
		{"nan", "TCS", math.NaN(), ErrInvalidPrice},
		{"inf", "TCS", math.Inf(1), ErrInvalidPrice},
		{"blank symbol", "  ", 10, ErrInvalidSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, c.SetPrice(tt.symbol, tt.price), tt.want)
		})
	}
	assert.Empty(t, c.Prices(nil), "rejected writes leave the cache untouched")
}

func TestPricesFilters(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.SetPrice("X", 10))
	require.NoError(t, c.SetPrice("Y", 20))

	assert.Equal(t, map[string]float64{"X": 10, "Y": 20}, c.Prices(nil))
	assert.Equal(t, map[string]float64{"X": 10}, c.Prices([]string{"x", "MISSING"}))
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	c, _ := newTestCache(t)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 1; i <= 200; i++ {
				_ = c.SetPrice("RELIANCE", float64(i))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if px, ok := c.Get("RELIANCE"); ok {
					assert.Greater(t, px, 0.0)
				}
			}
		}()
	}
	wg.Wait()
	_, ok := c.Get("RELIANCE")
	assert.True(t, ok)
}
