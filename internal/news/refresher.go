package news

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

// RefresherConfig controls how often and how politely upstream is polled.
type RefresherConfig struct {
	Symbols     []string      // fetched in this order every cycle
	Interval    time.Duration // staleness threshold
	FetchDelay  time.Duration // minimum spacing between consecutive upstream fetches
	QuerySuffix string        // appended to the symbol to form the search query
}

// DefaultRefresherConfig mirrors the production defaults minus the symbol set.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval:    2 * time.Minute,
		FetchDelay:  150 * time.Millisecond,
		QuerySuffix: "India stock",
	}
}

// Refresher owns the news cache. It is the only writer; readers call
// Snapshot and always see one complete generation.
type Refresher struct {
	cfg     RefresherConfig
	fetcher Fetcher
	clock   clock.Clock
	limiter *rate.Limiter

	current atomic.Pointer[Snapshot]

	// inflight is a single-slot lock held for the length of a cycle.
	inflight chan struct{}
	cycles   atomic.Int64
}

// NewRefresher builds a Refresher with an empty, stale cache. A nil clock
// means wall time.
func NewRefresher(cfg RefresherConfig, fetcher Fetcher, clk clock.Clock) *Refresher {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefresherConfig().Interval
	}
	limit := rate.Inf
	if cfg.FetchDelay > 0 {
		limit = rate.Every(cfg.FetchDelay)
	}
	r := &Refresher{
		cfg:      cfg,
		fetcher:  fetcher,
		clock:    clk,
		limiter:  rate.NewLimiter(limit, 1),
		inflight: make(chan struct{}, 1),
	}
	r.current.Store(&Snapshot{Feeds: map[string]Feed{}})
	return r
}

// Snapshot returns the current cache generation. Never nil.
func (r *Refresher) Snapshot() *Snapshot {
	return r.current.Load()
}

// Symbols returns the tracked symbol set in fetch order.
func (r *Refresher) Symbols() []string {
	return append([]string(nil), r.cfg.Symbols...)
}

// Cycles reports how many refresh cycles have completed.
func (r *Refresher) Cycles() int64 {
	return r.cycles.Load()
}

func (r *Refresher) fresh() bool {
	return r.clock.Now().Sub(r.Snapshot().RefreshedAt) <= r.cfg.Interval
}

// MaybeRefresh runs a refresh cycle when the cache is older than the
// interval. Overlapping callers are serialized: a caller that finds a cycle
// in flight waits for it and then re-checks staleness, so concurrent
// triggers produce at most one cycle. Reports whether this call ran one.
func (r *Refresher) MaybeRefresh(ctx context.Context) (bool, error) {
	if r.fresh() {
		return false, nil
	}
	if err := r.acquire(ctx); err != nil {
		return false, err
	}
	defer r.release()
	if r.fresh() {
		return false, nil
	}
	return true, r.refresh(ctx)
}

// ForceRefresh runs a cycle regardless of staleness, still serialized
// against any other cycle.
func (r *Refresher) ForceRefresh(ctx context.Context) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()
	return r.refresh(ctx)
}

// Run warms the cache immediately and then on every interval tick until ctx
// is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.cfg.Interval)
	defer ticker.Stop()

	r.warm(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.warm(ctx)
		}
	}
}

func (r *Refresher) warm(ctx context.Context) {
	if _, err := r.MaybeRefresh(ctx); err != nil && ctx.Err() == nil {
		observ.LogError("news_warm_failed", err, nil)
	}
}

func (r *Refresher) acquire(ctx context.Context) error {
	select {
	case r.inflight <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) release() {
	<-r.inflight
}

// refresh fetches every tracked symbol in order and publishes the new
// generation in one swap. A cancelled context abandons the cycle without
// publishing anything.
func (r *Refresher) refresh(ctx context.Context) error {
	started := r.clock.Now()
	results := make([]FetchResult, 0, len(r.cfg.Symbols))
	for _, sym := range r.cfg.Symbols {
		if err := r.limiter.Wait(ctx); err != nil {
			observ.IncCounter("news_refresh_aborted_total", nil)
			return fmt.Errorf("refresh aborted before %s: %w", sym, err)
		}
		results = append(results, r.fetchOne(ctx, sym))
	}
	// A fetch cut short by cancellation is not an upstream failure; keep the
	// previous generation rather than publishing it as empty.
	if err := ctx.Err(); err != nil {
		observ.IncCounter("news_refresh_aborted_total", nil)
		return fmt.Errorf("refresh aborted: %w", err)
	}

	next := &Snapshot{
		Feeds:       make(map[string]Feed, len(results)),
		RefreshedAt: started,
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			observ.LogWarn("news_fetch_failed", map[string]any{
				"symbol": res.Symbol,
				"error":  res.Err.Error(),
			})
			next.Feeds[res.Symbol] = Feed{}
			continue
		}
		next.Feeds[res.Symbol] = res.Items
	}
	r.current.Store(next)
	r.cycles.Add(1)

	observ.IncCounter("news_refresh_cycles_total", nil)
	observ.RecordDuration("news_refresh_cycle", r.clock.Since(started), nil)
	observ.SetGauge("news_refresh_failed_symbols", float64(failed), nil)
	observ.Log("news_refreshed", map[string]any{
		"symbols": len(results),
		"failed":  failed,
	})
	return nil
}

func (r *Refresher) fetchOne(ctx context.Context, sym string) FetchResult {
	query := strings.TrimSpace(sym + " " + r.cfg.QuerySuffix)
	raw, err := r.fetcher.FetchRawItems(ctx, query)
	if err != nil {
		observ.IncCounter("news_fetch_total", map[string]string{"result": "error"})
		return FetchResult{Symbol: sym, Err: err}
	}
	observ.IncCounter("news_fetch_total", map[string]string{"result": "ok"})
	return FetchResult{Symbol: sym, Items: Normalize(raw)}
}
