package adapters

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

// MockTicker simulates a live feed with a small random walk per symbol.
// Enabled with USE_MOCK_QUOTES for demos and local frontends.
type MockTicker struct {
	sink     PriceSink
	seeds    map[string]float64
	last     map[string]float64
	interval time.Duration
	stepPct  float64
	clock    clock.Clock
	rng      *rand.Rand
}

// MockTickerConfig configures the simulator.
type MockTickerConfig struct {
	Seeds    map[string]float64
	Interval time.Duration
	StepPct  float64 // max absolute move per tick, as a fraction of price
	Seed     int64   // rng seed; 0 picks one from the clock
	Clock    clock.Clock
}

func DefaultMockSeeds() map[string]float64 {
	return map[string]float64{
		"RELIANCE": 2500,
		"TCS":      4050,
		"HDFCBANK": 1530,
	}
}

func NewMockTicker(sink PriceSink, config MockTickerConfig) *MockTicker {
	if len(config.Seeds) == 0 {
		config.Seeds = DefaultMockSeeds()
	}
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.StepPct <= 0 {
		config.StepPct = 0.0005
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	seed := config.Seed
	if seed == 0 {
		seed = config.Clock.Now().UnixNano()
	}
	return &MockTicker{
		sink:     sink,
		seeds:    config.Seeds,
		last:     make(map[string]float64, len(config.Seeds)),
		interval: config.Interval,
		stepPct:  config.StepPct,
		clock:    config.Clock,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run publishes the seed prices, then one step per symbol every interval.
func (m *MockTicker) Run(ctx context.Context) error {
	symbols := make([]string, 0, len(m.seeds))
	for sym := range m.seeds {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		m.publish(sym, m.seeds[sym])
	}
	observ.Log("mock_quotes_started", map[string]any{"symbols": len(symbols)})

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, sym := range symbols {
				m.publish(sym, m.step(m.last[sym]))
			}
		}
	}
}

func (m *MockTicker) step(last float64) float64 {
	move := (m.rng.Float64() - 0.5) * 2 * m.stepPct
	next := math.Round(last*(1+move)*100) / 100
	return math.Max(0.01, next)
}

func (m *MockTicker) publish(sym string, px float64) {
	if err := m.sink.SetPrice(sym, px); err != nil {
		observ.LogError("mock_quote_rejected", err, map[string]any{"symbol": sym})
		return
	}
	m.last[sym] = px
}
