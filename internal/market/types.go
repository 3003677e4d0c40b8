package market

import (
	"fmt"
	"math"
	"time"
)

// Sentiment describes the prevailing market mood
type Sentiment string

const (
	SentimentBullish  Sentiment = "bullish"
	SentimentBearish  Sentiment = "bearish"
	SentimentNeutral  Sentiment = "neutral"
	SentimentVolatile Sentiment = "volatile"
)

// Valid reports whether the sentiment is one of the known values
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentBullish, SentimentBearish, SentimentNeutral, SentimentVolatile:
		return true
	}
	return false
}

// Conditions holds the current market indicators. Index values are on a
// 0-100 scale, correlation risk on 0-1.
type Conditions struct {
	VolatilityIndex  float64   `json:"volatility_index"`
	LiquidityIndex   float64   `json:"liquidity_index"`
	OrderBookDepth   float64   `json:"order_book_depth"`
	BidAskSpread     float64   `json:"bid_ask_spread"`
	TradingVolume24h float64   `json:"trading_volume_24h"`
	PriceChange24h   float64   `json:"price_change_24h"`
	CorrelationRisk  float64   `json:"correlation_risk"`
	Sentiment        Sentiment `json:"market_sentiment"`
	Timestamp        time.Time `json:"timestamp"`
}

// DefaultConditions returns the neutral state the store starts from, so
// market conditions are always present even before the first update.
func DefaultConditions() Conditions {
	return Conditions{
		VolatilityIndex:  30,
		LiquidityIndex:   70,
		OrderBookDepth:   50,
		BidAskSpread:     0.1,
		TradingVolume24h: 0,
		PriceChange24h:   0,
		CorrelationRisk:  0.3,
		Sentiment:        SentimentNeutral,
		Timestamp:        time.Now(),
	}
}

// ConditionsUpdate is a partial update to the market conditions. Nil fields
// keep their current value.
type ConditionsUpdate struct {
	VolatilityIndex  *float64   `json:"volatility_index,omitempty"`
	LiquidityIndex   *float64   `json:"liquidity_index,omitempty"`
	OrderBookDepth   *float64   `json:"order_book_depth,omitempty"`
	BidAskSpread     *float64   `json:"bid_ask_spread,omitempty"`
	TradingVolume24h *float64   `json:"trading_volume_24h,omitempty"`
	PriceChange24h   *float64   `json:"price_change_24h,omitempty"`
	CorrelationRisk  *float64   `json:"correlation_risk,omitempty"`
	Sentiment        *Sentiment `json:"market_sentiment,omitempty"`
}

// Validate rejects updates that would corrupt the conditions
func (u *ConditionsUpdate) Validate() error {
	checkIndex := func(name string, v *float64) error {
		if v == nil {
			return nil
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("%s is not a finite number", name)
		}
		if *v < 0 || *v > 100 {
			return fmt.Errorf("%s must be in [0, 100], got %.2f", name, *v)
		}
		return nil
	}

	if err := checkIndex("volatility index", u.VolatilityIndex); err != nil {
		return err
	}
	if err := checkIndex("liquidity index", u.LiquidityIndex); err != nil {
		return err
	}
	if u.OrderBookDepth != nil && (*u.OrderBookDepth < 0 || math.IsNaN(*u.OrderBookDepth)) {
		return fmt.Errorf("order book depth must not be negative, got %.2f", *u.OrderBookDepth)
	}
	if u.BidAskSpread != nil && (*u.BidAskSpread < 0 || math.IsNaN(*u.BidAskSpread)) {
		return fmt.Errorf("bid/ask spread must not be negative, got %.4f", *u.BidAskSpread)
	}
	if u.TradingVolume24h != nil && (*u.TradingVolume24h < 0 || math.IsNaN(*u.TradingVolume24h)) {
		return fmt.Errorf("24h trading volume must not be negative, got %.2f", *u.TradingVolume24h)
	}
	if u.PriceChange24h != nil && (math.IsNaN(*u.PriceChange24h) || math.IsInf(*u.PriceChange24h, 0)) {
		return fmt.Errorf("24h price change is not a finite number")
	}
	if u.CorrelationRisk != nil {
		if math.IsNaN(*u.CorrelationRisk) || *u.CorrelationRisk < 0 || *u.CorrelationRisk > 1 {
			return fmt.Errorf("correlation risk must be in [0, 1], got %.4f", *u.CorrelationRisk)
		}
	}
	if u.Sentiment != nil && !u.Sentiment.Valid() {
		return fmt.Errorf("unknown market sentiment %q", *u.Sentiment)
	}

	return nil
}

// PositionRiskProfile is the per-symbol risk view of an open position.
// The store owns the only mutable copy; callers always receive value copies.
type PositionRiskProfile struct {
	Symbol               string        `json:"symbol"`
	Size                 float64       `json:"size"`     // USD notional
	Exposure             float64       `json:"exposure"` // percent of portfolio
	Leverage             float64       `json:"leverage"`
	UnrealizedPnL        float64       `json:"unrealized_pnl"`
	ValueAtRisk          float64       `json:"value_at_risk"`
	MaxDrawdown          float64       `json:"max_drawdown"`
	TimeHeld             time.Duration `json:"time_held"`
	StopLossDistance     float64       `json:"stop_loss_distance"`
	TakeProfitDistance   float64       `json:"take_profit_distance"`
	CorrelationScore     float64       `json:"correlation_score"`
}

// Validate rejects profiles that cannot describe a real position
func (p *PositionRiskProfile) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("position symbol must not be empty")
	}
	if p.Size <= 0 || math.IsNaN(p.Size) || math.IsInf(p.Size, 0) {
		return fmt.Errorf("position size must be a positive finite number, got %.2f", p.Size)
	}
	if p.Leverage < 0 {
		return fmt.Errorf("leverage must not be negative, got %.2f", p.Leverage)
	}
	if p.ValueAtRisk < 0 {
		return fmt.Errorf("value at risk must not be negative, got %.2f", p.ValueAtRisk)
	}
	if p.CorrelationScore < -1 || p.CorrelationScore > 1 {
		return fmt.Errorf("correlation score must be in [-1, 1], got %.4f", p.CorrelationScore)
	}
	return nil
}

// PortfolioRiskMetrics is derived from the position map on demand and never
// persisted as a source of truth.
type PortfolioRiskMetrics struct {
	TotalValue               float64   `json:"total_value"`
	TotalExposure            float64   `json:"total_exposure"`
	ConcentrationRisk        float64   `json:"concentration_risk"`  // percent, largest position / total
	DiversificationScore     float64   `json:"diversification_score"`
	ValueAtRisk95            float64   `json:"value_at_risk_95"`
	ExpectedShortfall        float64   `json:"expected_shortfall"`
	AverageCorrelation       float64   `json:"average_correlation"`
	MaxSinglePositionPercent float64   `json:"max_single_position_percent"`
	LiquidityRisk            float64   `json:"liquidity_risk"`
	CurrentDrawdown          float64   `json:"current_drawdown"`
	PositionCount            int       `json:"position_count"`
	Timestamp                time.Time `json:"timestamp"`
}
