package stress

import "time"

// Scenario is a named market shock applied to the live portfolio
type Scenario struct {
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	PriceChangePercent   float64 `json:"price_change_percent"` // -20 means a 20% drop
	VolatilityMultiplier float64 `json:"volatility_multiplier"`
	LiquidityLossPercent float64 `json:"liquidity_loss_percent"`
}

// ScenarioResult is the estimated portfolio damage under one scenario
type ScenarioResult struct {
	Scenario          Scenario  `json:"scenario"`
	EstimatedLoss     float64   `json:"estimated_loss"`
	PortfolioImpact   float64   `json:"portfolio_impact"` // percent of portfolio value
	RiskScore         float64   `json:"risk_score"`       // 0-100
	PositionsAffected int       `json:"positions_affected"`
	Survivable        bool      `json:"survivable"`
	Timestamp         time.Time `json:"timestamp"`
}

// PriceSample is one observation of a price series with its traded volume
type PriceSample struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// FlashCrashSeverity grades a detected flash crash
type FlashCrashSeverity string

const (
	SeverityLow      FlashCrashSeverity = "low"
	SeverityMedium   FlashCrashSeverity = "medium"
	SeverityHigh     FlashCrashSeverity = "high"
	SeverityCritical FlashCrashSeverity = "critical"
)

// FlashCrashResult reports whether a price sequence looks like a flash crash
type FlashCrashResult struct {
	IsFlashCrash    bool               `json:"is_flash_crash"`
	DrawdownPercent float64            `json:"drawdown_percent"`
	VolumeSpike     float64            `json:"volume_spike"` // peak / trailing average
	Severity        FlashCrashSeverity `json:"severity"`
}

// ManipulationActivity is the observed trading behavior to screen
type ManipulationActivity struct {
	PriceMovementPercent          float64 `json:"price_movement_percent"`
	VolumeAnomalyPercent          float64 `json:"volume_anomaly_percent"`
	OrderBookSpoofing             bool    `json:"order_book_spoofing"`
	CrossExchangeDeviationPercent float64 `json:"cross_exchange_deviation_percent"`
	CoordinatedTrading            bool    `json:"coordinated_trading"`
}

// ManipulationResult accumulates the independent manipulation indicators
// into a 0-1 score and a recommended response.
type ManipulationResult struct {
	Score             float64  `json:"score"` // 0-1
	Indicators        []string `json:"indicators"`
	RecommendedAction string   `json:"recommended_action"` // none, monitor, reduce_exposure, halt_trading
}

// LiquidityCrisisResult reports whether the market can still absorb exits
type LiquidityCrisisResult struct {
	IsCrisis bool               `json:"is_crisis"`
	Severity FlashCrashSeverity `json:"severity"`
	Findings []string           `json:"findings"`
}

// TradeSafetyResult is the combined verdict of all anomaly heuristics for
// one proposed trade.
type TradeSafetyResult struct {
	Safe         bool                  `json:"safe"`
	Issues       []string              `json:"issues"`
	FlashCrash   FlashCrashResult      `json:"flash_crash"`
	Manipulation ManipulationResult    `json:"manipulation"`
	Liquidity    LiquidityCrisisResult `json:"liquidity"`
	Timestamp    time.Time             `json:"timestamp"`
}
