package news

import (
	"context"
	"time"
)

// Impact is the coarse sentiment label of a headline.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Weight maps the label onto the signed unit used when scoring a feed.
func (i Impact) Weight() float64 {
	switch i {
	case ImpactPositive:
		return 1
	case ImpactNegative:
		return -1
	default:
		return 0
	}
}

// MaxFeedItems caps every per-symbol feed.
const MaxFeedItems = 10

// DefaultSource labels items whose upstream entry names no outlet.
const DefaultSource = "Google News"

// RawItem is one entry as decoded by a fetch adapter, before normalization.
type RawItem struct {
	Title       string
	Source      string
	URL         string
	PublishedAt time.Time // zero when the upstream date is missing or unparseable
}

// NewsItem is a normalized, sentiment-tagged headline. Values are never
// mutated after Normalize returns them.
type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"ts"`
	Impact      Impact    `json:"impact"`
}

type identity struct {
	title  string
	source string
}

func (n NewsItem) identity() identity {
	return identity{title: n.Title, source: n.Source}
}

// Feed is the ordered, deduplicated news for one symbol. At most MaxFeedItems long.
type Feed []NewsItem

// Snapshot is one complete cache generation. A published Snapshot is
// read-only; the Refresher builds a new one per cycle.
type Snapshot struct {
	Feeds       map[string]Feed
	RefreshedAt time.Time
}

// Feed returns the feed for symbol, or nil when the symbol was not refreshed.
func (s *Snapshot) Feed(symbol string) Feed {
	if s == nil {
		return nil
	}
	return s.Feeds[symbol]
}

// Fetcher is the upstream news source. Implementations own their own timeout;
// a timeout surfaces as an ordinary error.
type Fetcher interface {
	FetchRawItems(ctx context.Context, query string) ([]RawItem, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, query string) ([]RawItem, error)

func (f FetcherFunc) FetchRawItems(ctx context.Context, query string) ([]RawItem, error) {
	return f(ctx, query)
}

// FetchResult is the outcome of fetching one symbol during a refresh cycle.
type FetchResult struct {
	Symbol string
	Items  Feed
	Err    error
}
