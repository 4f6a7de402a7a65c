package adapters

import "context"

// PriceSink receives last-traded prices. quotes.PriceCache implements it.
type PriceSink interface {
	SetPrice(symbol string, price float64) error
}

// TickFeed is a market-data source that pushes into a PriceSink until ctx
// is cancelled.
type TickFeed interface {
	Run(ctx context.Context) error
}

// ConnectionState represents the current state of a streaming connection
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
