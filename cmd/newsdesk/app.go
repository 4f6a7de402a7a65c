package main

import (
	"github.com/Rajchodisetti/newsdesk/internal/adapters"
	"github.com/Rajchodisetti/newsdesk/internal/config"
	"github.com/Rajchodisetti/newsdesk/internal/decision"
	"github.com/Rajchodisetti/newsdesk/internal/desk"
	"github.com/Rajchodisetti/newsdesk/internal/news"
	"github.com/Rajchodisetti/newsdesk/internal/observ"
	"github.com/Rajchodisetti/newsdesk/internal/quotes"
)

type app struct {
	cfg       config.Root
	fetcher   *adapters.GoogleNewsRSS
	refresher *news.Refresher
	params    decision.Params
	cache     *quotes.PriceCache
	desk      *desk.Desk
	feed      adapters.TickFeed // nil when no price source is configured
}

func buildApp(cfg config.Root) (*app, error) {
	fetcher := adapters.NewGoogleNewsRSS(adapters.RSSConfig{
		BaseURL: cfg.News.FeedURL,
		Timeout: cfg.News.FetchTimeout(),
	})
	refresher := news.NewRefresher(news.RefresherConfig{
		Symbols:     cfg.News.Symbols,
		Interval:    cfg.News.RefreshInterval(),
		FetchDelay:  cfg.News.FetchDelay(),
		QuerySuffix: cfg.News.QuerySuffix,
	}, fetcher, nil)

	cache := quotes.NewPriceCache(quotes.NewHub(quotes.HubConfig{
		HeartbeatInterval: cfg.Stream.HeartbeatInterval(),
		Buffer:            cfg.Stream.Buffer,
	}))

	params := decision.DefaultParams()
	if len(cfg.Signals.TrustedSources) > 0 {
		params.TrustedSources = cfg.Signals.TrustedSources
	}
	params.Tau = cfg.Signals.Tau()
	params.MaxCalls = cfg.Signals.MaxCalls

	a := &app{
		cfg:       cfg,
		fetcher:   fetcher,
		refresher: refresher,
		params:    params,
		cache:     cache,
		desk:      desk.New(refresher, cache, params, nil),
	}

	switch {
	case cfg.Quotes.UseMock:
		a.feed = adapters.NewMockTicker(cache, adapters.MockTickerConfig{})
	case cfg.Quotes.WSURL != "":
		ws, err := adapters.NewWSTicker(cache, adapters.WSTickerConfig{
			URL:         cfg.Quotes.WSURL,
			APIKey:      cfg.Quotes.APIKey,
			AccessToken: cfg.Quotes.AccessToken,
			Instruments: cfg.Quotes.Instruments,
		})
		if err != nil {
			return nil, err
		}
		a.feed = ws
	default:
		observ.LogWarn("no_price_source", map[string]any{
			"hint": "set USE_MOCK_QUOTES=true or quotes.ws_url",
		})
	}
	return a, nil
}
