// Package exchange defines the market-data contract the safety monitor
// consumes. Only price and liquidity inputs flow through here; order
// placement never does.
package exchange

import "context"

// Ticker is one symbol's market snapshot
type Ticker struct {
	Symbol                string  `json:"symbol"`
	LastPrice             float64 `json:"last_price"`
	Bid1Price             float64 `json:"bid1_price"`
	Ask1Price             float64 `json:"ask1_price"`
	Volume24h             float64 `json:"volume_24h"`
	Turnover24h           float64 `json:"turnover_24h"`
	PriceChange24hPercent float64 `json:"price_change_24h_percent"`
	HighPrice24h          float64 `json:"high_price_24h"`
	LowPrice24h           float64 `json:"low_price_24h"`
}

// SpreadPercent returns the bid/ask spread as a percent of the mid price
func (t Ticker) SpreadPercent() float64 {
	mid := (t.Bid1Price + t.Ask1Price) / 2
	if mid <= 0 {
		return 0
	}
	return (t.Ask1Price - t.Bid1Price) / mid * 100
}

// MarketDataClient supplies price and liquidity inputs for risk scoring
type MarketDataClient interface {
	// GetTicker fetches the current ticker for one symbol
	GetTicker(ctx context.Context, symbol string) (Ticker, error)

	// GetAllTickers fetches tickers for every symbol in the configured category
	GetAllTickers(ctx context.Context) ([]Ticker, error)
}
