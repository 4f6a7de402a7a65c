package decision

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/newsdesk/internal/news"
)

type CallStatus string

const StatusPending CallStatus = "PENDING"

// TradeCall is a point-in-time candidate anchored to the live price. Calls
// are rebuilt on every request and never updated.
type TradeCall struct {
	Symbol     string     `json:"symbol"`
	BuyFrom    float64    `json:"buyFrom"`
	BuyTo      float64    `json:"buyTo"`
	Trigger    float64    `json:"trigger"`
	Target     float64    `json:"target"`
	Stop       float64    `json:"stop"`
	Confidence float64    `json:"confidence"`
	Status     CallStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	Reason     Reason     `json:"reason"`
}

// Reason records how the news score behind a call was built.
type Reason struct {
	NewsScore float64 `json:"news_score"` // normalized, (0, 1]
	RawScore  float64 `json:"raw_score"`
	Items     int     `json:"items"`
	Positive  int     `json:"positive"`
	Negative  int     `json:"negative"`
	Anchor    float64 `json:"anchor_price"`
}

// Params are the tunables of call generation.
type Params struct {
	TrustedSources []string
	Tau            time.Duration // recency decay constant
	MaxCalls       int
}

func DefaultParams() Params {
	return Params{
		TrustedSources: []string{
			"Mint", "The Economic Times", "BloombergQuint", "BusinessLine",
			"Moneycontrol", "NSE", "BSE",
		},
		Tau:      90 * time.Minute,
		MaxCalls: 30,
	}
}

const (
	trustedWeight   = 1.25
	scoreScale      = 3.0
	baseConfidence  = 0.55
	confidenceSlope = 0.30
	maxConfidence   = 0.95
)

// Level multipliers around the anchor price.
var (
	mulBuyFrom = decimal.RequireFromString("0.998")
	mulBuyTo   = decimal.RequireFromString("1.002")
	mulTrigger = decimal.RequireFromString("1.001")
	mulTarget  = decimal.RequireFromString("1.010")
	mulStop    = decimal.RequireFromString("0.995")
)

type scorer struct {
	trusted map[string]struct{}
	tauMs   float64
	now     time.Time
}

func newScorer(p Params, now time.Time) scorer {
	s := scorer{trusted: make(map[string]struct{}, len(p.TrustedSources)), now: now}
	for _, src := range p.TrustedSources {
		s.trusted[src] = struct{}{}
	}
	tau := p.Tau
	if tau <= 0 {
		tau = DefaultParams().Tau
	}
	s.tauMs = float64(tau.Milliseconds())
	return s
}

// contribution is impact × credibility × recency for one item. A zero
// publish time counts as "just now".
func (s scorer) contribution(item news.NewsItem) float64 {
	credibility := 1.0
	if _, ok := s.trusted[item.Source]; ok {
		credibility = trustedWeight
	}
	published := item.PublishedAt
	if published.IsZero() {
		published = s.now
	}
	ageMs := math.Max(1, float64(s.now.Sub(published).Milliseconds()))
	return item.Impact.Weight() * credibility * math.Exp(-ageMs/s.tauMs)
}

func (s scorer) score(feed news.Feed) Reason {
	var r Reason
	for _, item := range feed {
		r.RawScore += s.contribution(item)
		switch item.Impact {
		case news.ImpactPositive:
			r.Positive++
		case news.ImpactNegative:
			r.Negative++
		}
	}
	r.Items = len(feed)
	r.NewsScore = clamp(r.RawScore/scoreScale, -1, 1)
	return r
}

// NewsScore returns the normalized sentiment score of a feed in [-1, 1].
func NewsScore(feed news.Feed, now time.Time, p Params) float64 {
	return newScorer(p, now).score(feed).NewsScore
}

// Confidence maps a normalized score onto [0, 0.95].
func Confidence(newsScore float64) float64 {
	return clamp(math.Min(maxConfidence, baseConfidence+confidenceSlope*newsScore), 0, maxConfidence)
}

// GenerateCalls builds ranked calls for every symbol that has both a known
// price and a net-positive news score. Symbols are visited in the given
// order, or sorted order of feeds when symbols is nil; ties in confidence
// keep that order. At most p.MaxCalls calls are returned.
func GenerateCalls(symbols []string, feeds map[string]news.Feed, prices map[string]float64, now time.Time, p Params) []TradeCall {
	if symbols == nil {
		symbols = make([]string, 0, len(feeds))
		for sym := range feeds {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
	}
	maxCalls := p.MaxCalls
	if maxCalls <= 0 {
		maxCalls = DefaultParams().MaxCalls
	}

	sc := newScorer(p, now)
	calls := make([]TradeCall, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		px, ok := prices[sym]
		if !ok || px <= 0 || math.IsNaN(px) || math.IsInf(px, 0) {
			continue
		}
		feed := feeds[sym]
		if len(feed) == 0 {
			continue
		}
		reason := sc.score(feed)
		if reason.NewsScore <= 0 {
			continue
		}
		reason.Anchor = px
		call, ok := buildCall(sym, px, reason, now)
		if !ok {
			continue
		}
		calls = append(calls, call)
	}

	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Confidence > calls[j].Confidence
	})
	if len(calls) > maxCalls {
		calls = calls[:maxCalls]
	}
	return calls
}

func buildCall(sym string, px float64, reason Reason, now time.Time) (TradeCall, bool) {
	anchor := decimal.NewFromFloat(px)
	level := func(mul decimal.Decimal) float64 {
		return anchor.Mul(mul).Round(2).InexactFloat64()
	}
	c := TradeCall{
		Symbol:     sym,
		BuyFrom:    level(mulBuyFrom),
		BuyTo:      level(mulBuyTo),
		Trigger:    level(mulTrigger),
		Target:     level(mulTarget),
		Stop:       level(mulStop),
		Confidence: Confidence(reason.NewsScore),
		Status:     StatusPending,
		CreatedAt:  now,
		Reason:     reason,
	}
	return c, c.levelsOrdered()
}

// levelsOrdered holds when stop < buyFrom < trigger < buyTo < target. Very
// low prices can collapse adjacent levels once rounded to cents.
func (c TradeCall) levelsOrdered() bool {
	return c.Stop < c.BuyFrom &&
		c.BuyFrom < c.Trigger &&
		c.Trigger < c.BuyTo &&
		c.BuyTo < c.Target
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
