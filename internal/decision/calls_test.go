package decision

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/newsdesk/internal/news"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func item(title, source string, age time.Duration) news.NewsItem {
	return news.NewsItem{
		Title:       title,
		Source:      source,
		PublishedAt: now.Add(-age),
		Impact:      news.Classify(title),
	}
}

func TestLevelsAnchoredToPrice(t *testing.T) {
	feeds := map[string]news.Feed{"TCS": {item("TCS wins contract", "Mint", 0)}}
	calls := GenerateCalls([]string{"TCS"}, feeds, map[string]float64{"TCS": 1000}, now, DefaultParams())

	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, 998.0, c.BuyFrom)
	assert.Equal(t, 1002.0, c.BuyTo)
	assert.Equal(t, 1001.0, c.Trigger)
	assert.Equal(t, 1010.0, c.Target)
	assert.Equal(t, 995.0, c.Stop)
	assert.Less(t, c.BuyFrom, c.BuyTo)
	assert.Less(t, c.Trigger, c.Target)
	assert.Less(t, c.Stop, c.BuyFrom)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, 1000.0, c.Reason.Anchor)
}

func TestLevelsRoundToCents(t *testing.T) {
	feeds := map[string]news.Feed{"INFY": {item("Infosys profit rises", "NSE", 0)}}
	calls := GenerateCalls(nil, feeds, map[string]float64{"INFY": 1537.37}, now, DefaultParams())

	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, 1534.30, c.BuyFrom) // 1534.29526
	assert.Equal(t, 1540.44, c.BuyTo)   // 1540.44474
	assert.Equal(t, 1538.91, c.Trigger) // 1538.90737
	assert.Equal(t, 1552.74, c.Target)  // 1552.7437
	assert.Equal(t, 1529.68, c.Stop)    // 1529.68315
}

func TestRankingByConfidence(t *testing.T) {
	feeds := map[string]news.Feed{
		// ~0.33 normalized: one untrusted positive.
		"SYM2": {item("Sym2 gains", "Blog", 0)},
		// ~0.83 normalized: two trusted positives.
		"SYM1": {
			item("Sym1 wins approval", "Mint", 0),
			item("Sym1 profit surge", "BSE", 0),
		},
	}
	prices := map[string]float64{"SYM1": 100, "SYM2": 200}

	calls := GenerateCalls([]string{"SYM2", "SYM1"}, feeds, prices, now, DefaultParams())

	require.Len(t, calls, 2)
	assert.Equal(t, "SYM1", calls[0].Symbol)
	assert.Equal(t, "SYM2", calls[1].Symbol)
	assert.InDelta(t, 0.55+0.30*2.5/3, calls[0].Confidence, 1e-6)
	assert.InDelta(t, 0.55+0.30*1.0/3, calls[1].Confidence, 1e-6)
}

func TestTiesKeepSymbolOrder(t *testing.T) {
	feeds := map[string]news.Feed{}
	prices := map[string]float64{}
	order := []string{"C", "A", "B"}
	for _, sym := range order {
		feeds[sym] = news.Feed{item("order win", "NSE", 0)}
		prices[sym] = 50
	}

	calls := GenerateCalls(order, feeds, prices, now, DefaultParams())

	require.Len(t, calls, 3)
	for i, sym := range order {
		assert.Equal(t, sym, calls[i].Symbol)
	}
}

func TestSkipsWithoutPriceNewsOrPositiveScore(t *testing.T) {
	feeds := map[string]news.Feed{
		"NOPRICE": {item("wins contract", "Mint", 0)},
		"EMPTY":   {},
		"NEG":     {item("fraud probe", "Mint", 0)},
		"NEUTRAL": {item("quarterly update", "Mint", 0)},
		"OK":      {item("wins contract", "Mint", 0)},
	}
	prices := map[string]float64{"EMPTY": 10, "NEG": 10, "NEUTRAL": 10, "OK": 10, "NOFEED": 10}

	calls := GenerateCalls([]string{"NOPRICE", "EMPTY", "NEG", "NEUTRAL", "NOFEED", "OK"}, feeds, prices, now, DefaultParams())

	require.Len(t, calls, 1)
	assert.Equal(t, "OK", calls[0].Symbol)
}

func TestRecencyDecay(t *testing.T) {
	p := DefaultParams()
	fresh := NewsScore(news.Feed{item("gains", "Blog", 0)}, now, p)
	old := NewsScore(news.Feed{item("gains", "Blog", 90*time.Minute)}, now, p)

	assert.InDelta(t, 1.0/3, fresh, 1e-6)
	assert.InDelta(t, math.Exp(-1)/3, old, 1e-6)

	future := NewsScore(news.Feed{item("gains", "Blog", -time.Hour)}, now, p)
	assert.InDelta(t, fresh, future, 1e-6, "age is clamped to at least 1ms")

	undated := news.Feed{{Title: "gains", Source: "Blog", Impact: news.ImpactPositive}}
	assert.InDelta(t, fresh, NewsScore(undated, now, p), 1e-6, "missing timestamp counts as now")
}

func TestScoreAndConfidenceBounds(t *testing.T) {
	p := DefaultParams()
	var feed news.Feed
	for i := 0; i < news.MaxFeedItems; i++ {
		feed = append(feed, item(fmt.Sprintf("record profit surge %d", i), "Mint", 0))
	}
	assert.Equal(t, 1.0, NewsScore(feed, now, p))

	var bad news.Feed
	for i := 0; i < news.MaxFeedItems; i++ {
		bad = append(bad, item(fmt.Sprintf("fraud probe %d", i), "Mint", 0))
	}
	assert.Equal(t, -1.0, NewsScore(bad, now, p))
	assert.Equal(t, 0.0, NewsScore(nil, now, p))

	for _, s := range []float64{-1, -0.5, 0, 0.3, 1, 5} {
		c := Confidence(s)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 0.95)
	}

	calls := GenerateCalls(nil, map[string]news.Feed{"X": feed}, map[string]float64{"X": 250}, now, p)
	require.Len(t, calls, 1)
	assert.InDelta(t, 0.85, calls[0].Confidence, 1e-9)
	assert.Equal(t, news.MaxFeedItems, calls[0].Reason.Positive)
}

func TestTrustedSourcesAreConfigurable(t *testing.T) {
	feed := news.Feed{item("gains", "Local Wire", 0)}
	base := NewsScore(feed, now, DefaultParams())

	p := DefaultParams()
	p.TrustedSources = append(p.TrustedSources, "Local Wire")
	assert.InDelta(t, base*1.25, NewsScore(feed, now, p), 1e-9)
}

func TestTruncatesToMaxCalls(t *testing.T) {
	feeds := map[string]news.Feed{}
	prices := map[string]float64{}
	for i := 0; i < 40; i++ {
		sym := fmt.Sprintf("S%02d", i)
		// Older news for later symbols so confidence strictly decreases.
		feeds[sym] = news.Feed{item("gains", "Mint", time.Duration(i)*time.Minute)}
		prices[sym] = 100
	}

	calls := GenerateCalls(nil, feeds, prices, now, DefaultParams())

	require.Len(t, calls, 30)
	assert.Equal(t, "S00", calls[0].Symbol)
	assert.Equal(t, "S29", calls[29].Symbol)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i-1].Confidence, calls[i].Confidence)
	}
}

func TestSkipsCollapsedLevels(t *testing.T) {
	feeds := map[string]news.Feed{"PENNY": {item("gains", "Mint", 0)}}
	calls := GenerateCalls(nil, feeds, map[string]float64{"PENNY": 0.5}, now, DefaultParams())
	assert.Empty(t, calls)
}
