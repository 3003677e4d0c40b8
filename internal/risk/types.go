package risk

import "time"

// TradeSide is the direction of a proposed trade
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// SubScores breaks the composite trade risk score into its weighted components
type SubScores struct {
	PositionSize    float64 `json:"position_size"`
	Concentration   float64 `json:"concentration"`
	Correlation     float64 `json:"correlation"`
	Market          float64 `json:"market"`
	Liquidity       float64 `json:"liquidity"`
	PortfolioImpact float64 `json:"portfolio_impact"`
}

// AdjustmentFactors are the multipliers applied on top of the weighted sum.
// Each is at least 1.0 and only rises above it in adverse conditions.
type AdjustmentFactors struct {
	Volatility float64 `json:"volatility"`
	Liquidity  float64 `json:"liquidity"`
	Sentiment  float64 `json:"sentiment"`
}

// AdvancedMetrics carries the statistical estimates attached to an assessment
type AdvancedMetrics struct {
	ValueAtRisk       float64           `json:"value_at_risk"`
	ExpectedShortfall float64           `json:"expected_shortfall"`
	SubScores         SubScores         `json:"sub_scores"`
	Adjustments       AdjustmentFactors `json:"adjustments"`
}

// TradeAssessment is the outcome of assessing a single proposed trade
type TradeAssessment struct {
	Symbol          string          `json:"symbol"`
	Side            TradeSide       `json:"side"`
	TradeValue      float64         `json:"trade_value"`
	Approved        bool            `json:"approved"`
	RiskScore       float64         `json:"risk_score"` // 0-100
	Reasons         []string        `json:"reasons"`
	Warnings        []string        `json:"warnings"`
	MaxAllowedSize  float64         `json:"max_allowed_size"`
	EstimatedImpact float64         `json:"estimated_impact"` // percent of post-trade portfolio
	Metrics         AdvancedMetrics `json:"advanced_metrics"`
	Timestamp       time.Time       `json:"timestamp"`
}

// PositionSizeRequest asks the dynamic calculator to validate a desired size
type PositionSizeRequest struct {
	RequestedSize            float64 `json:"requested_size"`
	PortfolioValue           float64 `json:"portfolio_value"`
	MaxSinglePositionSize    float64 `json:"max_single_position_size"` // 0 means use configured limit
	EstimatedRisk            float64 `json:"estimated_risk"`           // 0-100
	CorrelationWithPortfolio float64 `json:"correlation_with_portfolio"`
}

// PositionSizeResult is the graded answer to a PositionSizeRequest
type PositionSizeResult struct {
	Approved         bool     `json:"approved"`
	AdjustedSize     float64  `json:"adjusted_position_size"`
	AdjustmentReason string   `json:"adjustment_reason"`
	Warnings         []string `json:"warnings"`
}

// StopLossResult is an adaptive stop-loss recommendation for a long entry
type StopLossResult struct {
	Percent float64 `json:"stop_loss_percent"` // 1-8
	Price   float64 `json:"stop_loss_price"`
}

// TakeProfitResult is an adaptive take-profit recommendation for a long entry
type TakeProfitResult struct {
	Percent float64 `json:"take_profit_percent"` // 2-12
	Price   float64 `json:"take_profit_price"`
}

// DiversificationLevel buckets how concentrated a proposed trade would be
type DiversificationLevel string

const (
	DiversificationLow    DiversificationLevel = "low"
	DiversificationMedium DiversificationLevel = "medium"
	DiversificationHigh   DiversificationLevel = "high"
)

// DiversificationAssessment recommends a maximum position for a proposed trade
type DiversificationAssessment struct {
	Level                  DiversificationLevel `json:"risk_level"`
	ConcentrationPercent   float64              `json:"concentration_percent"`
	RecommendedMaxPosition float64              `json:"recommended_max_position"`
	Recommendation         string               `json:"recommendation"`
}
