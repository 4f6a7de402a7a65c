package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"

	"github.com/Rajchodisetti/newsdesk/internal/news"
	"github.com/Rajchodisetti/newsdesk/internal/observ"
)

// GoogleNewsRSS fetches headlines from a Google News style RSS search
// endpoint. It satisfies news.Fetcher.
type GoogleNewsRSS struct {
	baseURL    string
	httpClient *http.Client
	maxItems   int
	userAgent  string
}

// RSSConfig holds configuration for the RSS adapter.
type RSSConfig struct {
	BaseURL   string        // search endpoint; the query is passed as ?q=
	Timeout   time.Duration // per request, including body read
	MaxItems  int
	UserAgent string
}

func DefaultRSSConfig() RSSConfig {
	return RSSConfig{
		BaseURL:   "https://news.google.com/rss/search",
		Timeout:   10 * time.Second,
		MaxItems:  news.MaxFeedItems,
		UserAgent: "newsdesk/1.0",
	}
}

func NewGoogleNewsRSS(config RSSConfig) *GoogleNewsRSS {
	def := DefaultRSSConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxItems <= 0 {
		config.MaxItems = def.MaxItems
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}
	return &GoogleNewsRSS{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		maxItems:  config.MaxItems,
		userAgent: config.UserAgent,
	}
}

// Timeout is the per-request deadline applied to upstream calls.
func (g *GoogleNewsRSS) Timeout() time.Duration {
	return g.httpClient.Timeout
}

// FetchRawItems returns at most maxItems entries for query, in feed order.
func (g *GoogleNewsRSS) FetchRawItems(ctx context.Context, query string) ([]news.RawItem, error) {
	start := time.Now()
	items, err := g.fetch(ctx, query)
	observ.RecordDuration("rss_fetch", time.Since(start), nil)
	if err != nil {
		observ.IncCounter("rss_fetch_errors_total", map[string]string{"type": errorType(err)})
		return nil, err
	}
	return items, nil
}

func (g *GoogleNewsRSS) fetch(ctx context.Context, query string) ([]news.RawItem, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, NewFetchError("config", query, "bad base url", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, NewFetchError("config", query, "create request", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, NewFetchError("network", query, "http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFetchError("status", query, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}

	var parser rss.Parser
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, NewFetchError("parse", query, "decode rss", err)
	}

	n := min(len(feed.Items), g.maxItems)
	out := make([]news.RawItem, 0, n)
	for _, it := range feed.Items[:n] {
		out = append(out, toRawItem(it))
	}
	return out, nil
}

// toRawItem prefers the <source> element, then dc:creator, for the outlet name.
func toRawItem(it *rss.Item) news.RawItem {
	raw := news.RawItem{
		Title: strings.TrimSpace(it.Title),
		URL:   strings.TrimSpace(it.Link),
	}
	switch {
	case it.Source != nil && strings.TrimSpace(it.Source.Title) != "":
		raw.Source = strings.TrimSpace(it.Source.Title)
	case it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0:
		raw.Source = strings.TrimSpace(it.DublinCoreExt.Creator[0])
	}
	if it.PubDateParsed != nil {
		raw.PublishedAt = it.PubDateParsed.UTC()
	}
	return raw
}

// FetchError classifies an upstream news failure.
type FetchError struct {
	Type    string // "network", "status", "parse", "config"
	Query   string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %q: %s (%v)", e.Type, e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %q: %s", e.Type, e.Query, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func NewFetchError(kind, query, message string, cause error) *FetchError {
	return &FetchError{Type: kind, Query: query, Message: message, Cause: cause}
}

func errorType(err error) string {
	if fe, ok := err.(*FetchError); ok {
		return fe.Type
	}
	return "unknown"
}
