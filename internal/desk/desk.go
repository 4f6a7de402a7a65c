// Package desk is the query surface shared by the HTTP server and the CLI:
// news per symbol, ranked trade calls and live prices.
package desk

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/Rajchodisetti/newsdesk/internal/decision"
	"github.com/Rajchodisetti/newsdesk/internal/news"
	"github.com/Rajchodisetti/newsdesk/internal/quotes"
)

// ErrInvalidSymbols is returned by ParseSymbols for malformed input.
var ErrInvalidSymbols = errors.New("invalid symbols")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9&._-]{1,20}$`)

// SymbolNews is the news block for one symbol.
type SymbolNews struct {
	Symbol string          `json:"symbol"`
	Items  []news.NewsItem `json:"items"`
}

type Desk struct {
	refresher *news.Refresher
	cache     *quotes.PriceCache
	params    decision.Params
	clock     clock.Clock
}

func New(refresher *news.Refresher, cache *quotes.PriceCache, params decision.Params, clk clock.Clock) *Desk {
	if clk == nil {
		clk = clock.New()
	}
	return &Desk{refresher: refresher, cache: cache, params: params, clock: clk}
}

// ParseSymbols splits a comma separated query value. An empty value yields
// nil, meaning the tracked set.
func ParseSymbols(raw string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym == "" {
			continue
		}
		if !symbolPattern.MatchString(sym) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSymbols, sym)
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out, nil
}

func (d *Desk) resolve(symbols []string) []string {
	if len(symbols) == 0 {
		return d.refresher.Symbols()
	}
	return symbols
}

// News returns cached news for symbols after making sure the cache is
// fresh. Symbols outside the tracked set come back with no items.
func (d *Desk) News(ctx context.Context, symbols []string) ([]SymbolNews, error) {
	if _, err := d.refresher.MaybeRefresh(ctx); err != nil {
		return nil, err
	}
	snap := d.refresher.Snapshot()
	syms := d.resolve(symbols)
	out := make([]SymbolNews, 0, len(syms))
	for _, sym := range syms {
		items := []news.NewsItem(snap.Feed(sym))
		if items == nil {
			items = []news.NewsItem{}
		}
		out = append(out, SymbolNews{Symbol: sym, Items: items})
	}
	return out, nil
}

// Calls returns ranked trade calls for symbols using cached news and the
// latest prices.
func (d *Desk) Calls(ctx context.Context, symbols []string) ([]decision.TradeCall, error) {
	if _, err := d.refresher.MaybeRefresh(ctx); err != nil {
		return nil, err
	}
	snap := d.refresher.Snapshot()
	syms := d.resolve(symbols)
	feeds := make(map[string]news.Feed, len(syms))
	for _, sym := range syms {
		feeds[sym] = snap.Feed(sym)
	}
	return decision.GenerateCalls(syms, feeds, d.cache.Prices(syms), d.clock.Now(), d.params), nil
}

func (d *Desk) Price(symbol string) (float64, bool) {
	return d.cache.Get(symbol)
}

// SubscribePrices opens a price stream; callers must Close it.
func (d *Desk) SubscribePrices(symbols []string) *quotes.Subscription {
	return d.cache.Subscribe(symbols)
}

// Symbols is the tracked set.
func (d *Desk) Symbols() []string {
	return d.refresher.Symbols()
}

// Refresher exposes the news cache owner for background warming.
func (d *Desk) Refresher() *news.Refresher {
	return d.refresher
}
