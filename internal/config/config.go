package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the tracked set used when neither the config file nor
// NIFTY_SYMBOLS names one.
var DefaultSymbols = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
	"SBIN", "BHARTIARTL", "ITC", "LT", "HINDUNILVR",
}

type News struct {
	Symbols           []string `yaml:"symbols" env:"NIFTY_SYMBOLS" envSeparator:","`
	RefreshIntervalMs int      `yaml:"refresh_interval_ms" env:"REFRESH_INTERVAL_MS"`
	FetchDelayMs      int      `yaml:"fetch_delay_ms" env:"FETCH_DELAY_MS"`
	QuerySuffix       string   `yaml:"query_suffix" env:"NEWS_QUERY_SUFFIX"`
	FetchTimeoutMs    int      `yaml:"fetch_timeout_ms" env:"NEWS_FETCH_TIMEOUT_MS"`
	FeedURL           string   `yaml:"feed_url" env:"NEWS_FEED_URL"`
}

type Signals struct {
	TrustedSources []string `yaml:"trusted_sources" env:"TRUSTED_SOURCES" envSeparator:","`
	TauMinutes     int      `yaml:"tau_minutes" env:"SIGNAL_TAU_MINUTES"`
	MaxCalls       int      `yaml:"max_calls" env:"SIGNAL_MAX_CALLS"`
}

type Server struct {
	Port           int    `yaml:"port" env:"PORT"`
	FrontendOrigin string `yaml:"frontend_origin" env:"FRONTEND_ORIGIN"`
}

type Stream struct {
	HeartbeatSeconds int `yaml:"heartbeat_seconds" env:"STREAM_HEARTBEAT_SECONDS"`
	Buffer           int `yaml:"buffer" env:"STREAM_BUFFER"`
}

type Quotes struct {
	UseMock     bool              `yaml:"use_mock" env:"USE_MOCK_QUOTES"`
	WSURL       string            `yaml:"ws_url" env:"QUOTES_WS_URL"`
	APIKey      string            `yaml:"api_key" env:"KITE_API_KEY"`
	AccessToken string            `yaml:"access_token" env:"KITE_ACCESS_TOKEN"`
	Instruments map[string]string `yaml:"instruments" env:"QUOTES_INSTRUMENTS" envSeparator:"," envKeyValSeparator:":"` // token -> symbol
}

type Root struct {
	News    News    `yaml:"news"`
	Signals Signals `yaml:"signals"`
	Server  Server  `yaml:"server"`
	Stream  Stream  `yaml:"stream"`
	Quotes  Quotes  `yaml:"quotes"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides, then fills defaults for anything left unset.
func Load(path string) (Root, error) {
	return load(path, env.Options{})
}

func load(path string, opts env.Options) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return c, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Root) applyDefaults() {
	c.News.Symbols = cleanSymbols(c.News.Symbols)
	if len(c.News.Symbols) == 0 {
		c.News.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.News.RefreshIntervalMs == 0 {
		c.News.RefreshIntervalMs = 120000
	}
	if c.News.FetchDelayMs == 0 {
		c.News.FetchDelayMs = 150
	}
	if c.News.QuerySuffix == "" {
		c.News.QuerySuffix = "India stock"
	}
	if c.News.FetchTimeoutMs == 0 {
		c.News.FetchTimeoutMs = 10000
	}

	if c.Signals.TauMinutes == 0 {
		c.Signals.TauMinutes = 90
	}
	if c.Signals.MaxCalls == 0 {
		c.Signals.MaxCalls = 30
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Stream.HeartbeatSeconds == 0 {
		c.Stream.HeartbeatSeconds = 10
	}
	if c.Stream.Buffer == 0 {
		c.Stream.Buffer = 256
	}
}

func (c Root) validate() error {
	switch {
	case c.News.RefreshIntervalMs < 0:
		return errors.New("news.refresh_interval_ms must be positive")
	case c.News.FetchDelayMs < 0:
		return errors.New("news.fetch_delay_ms must not be negative")
	case c.Signals.TauMinutes < 0:
		return errors.New("signals.tau_minutes must be positive")
	case c.Signals.MaxCalls < 0:
		return errors.New("signals.max_calls must be positive")
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return errors.New("server.port out of range")
	case c.Stream.HeartbeatSeconds < 0 || c.Stream.Buffer < 0:
		return errors.New("stream settings must be positive")
	}
	return nil
}

func cleanSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (n News) RefreshInterval() time.Duration {
	return time.Duration(n.RefreshIntervalMs) * time.Millisecond
}

func (n News) FetchDelay() time.Duration {
	return time.Duration(n.FetchDelayMs) * time.Millisecond
}

func (n News) FetchTimeout() time.Duration {
	return time.Duration(n.FetchTimeoutMs) * time.Millisecond
}

func (s Signals) Tau() time.Duration {
	return time.Duration(s.TauMinutes) * time.Minute
}

func (s Stream) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatSeconds) * time.Second
}
