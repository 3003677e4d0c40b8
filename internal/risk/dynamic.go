package risk

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
)

// Stop-loss and take-profit bounds in percent
const (
	minStopLossPercent   = 1.0
	maxStopLossPercent   = 8.0
	minTakeProfitPercent = 2.0
	maxTakeProfitPercent = 12.0
)

// Calculator produces adaptive stop-loss, take-profit and position-size
// guidance from the current market conditions.
type Calculator struct {
	cfg   *config.Manager
	store *market.Store
}

// NewCalculator creates a dynamic risk calculator
func NewCalculator(cfg *config.Manager, store *market.Store) *Calculator {
	return &Calculator{cfg: cfg, store: store}
}

// StopLoss computes an adaptive stop-loss for a long entry. Wider stops under
// high volatility and thin liquidity, tighter stops for oversized positions.
func (c *Calculator) StopLoss(entryPrice, positionSize, portfolioValue float64) StopLossResult {
	conditions := c.store.Conditions()
	volatility := conditions.VolatilityIndex / 100
	liquidity := conditions.LiquidityIndex / 100
	ratio := sizeRatio(positionSize, portfolioValue)

	percent := 2.0 + volatility*3.0 + (1-liquidity)*2.0 - ratio*1.0
	percent = clampPercent(percent, minStopLossPercent, maxStopLossPercent)

	return StopLossResult{
		Percent: percent,
		Price:   entryPrice * (1 - percent/100),
	}
}

// TakeProfit computes an adaptive take-profit for a long entry. Bullish
// sentiment stretches the target, bearish sentiment pulls it in.
func (c *Calculator) TakeProfit(entryPrice, positionSize, portfolioValue float64) TakeProfitResult {
	conditions := c.store.Conditions()
	volatility := conditions.VolatilityIndex / 100
	ratio := sizeRatio(positionSize, portfolioValue)

	percent := 5.0 + volatility*4.0 - ratio*1.5
	switch conditions.Sentiment {
	case market.SentimentBullish:
		percent += 2.0
	case market.SentimentBearish:
		percent -= 1.0
	}
	percent = clampPercent(percent, minTakeProfitPercent, maxTakeProfitPercent)

	return TakeProfitResult{
		Percent: percent,
		Price:   entryPrice * (1 + percent/100),
	}
}

// ValidatePositionSize grades a requested position size through the capping
// pipeline: absolute cap, 5%-of-portfolio cap, remaining portfolio capacity,
// then risk- and correlation-driven reductions. Sizes that end up below the
// minimum viable trade are rejected outright.
func (c *Calculator) ValidatePositionSize(req PositionSizeRequest) PositionSizeResult {
	limits := c.cfg.Current().Risk

	result := PositionSizeResult{
		AdjustedSize: req.RequestedSize,
	}

	if req.RequestedSize <= 0 || math.IsNaN(req.RequestedSize) || math.IsInf(req.RequestedSize, 0) {
		result.AdjustmentReason = "invalid_requested_size"
		return result
	}

	absoluteCap := req.MaxSinglePositionSize
	if absoluteCap <= 0 {
		absoluteCap = limits.MaxSinglePositionSize
	}
	if result.AdjustedSize > absoluteCap {
		result.AdjustedSize = absoluteCap
		result.AdjustmentReason = "position_size_capped"
	}

	if req.PortfolioValue > 0 {
		portfolioCap := req.PortfolioValue * 0.05
		if result.AdjustedSize > portfolioCap {
			result.AdjustedSize = portfolioCap
			result.AdjustmentReason = "position_size_capped"
		}
	}

	remaining := limits.MaxPortfolioValue - req.PortfolioValue
	if remaining <= 0 {
		result.AdjustedSize = 0
		result.AdjustmentReason = "portfolio_capacity_exhausted"
		return result
	}
	if result.AdjustedSize > remaining {
		result.AdjustedSize = remaining
		result.AdjustmentReason = "position_size_capped"
		result.Warnings = append(result.Warnings, "portfolio near configured capacity")
	}

	if req.EstimatedRisk > 15 {
		result.AdjustedSize *= 0.70
		if result.AdjustmentReason == "" {
			result.AdjustmentReason = "risk_reduction"
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("size reduced 30%% for estimated risk %.1f", req.EstimatedRisk))
	}

	if req.CorrelationWithPortfolio > 0.7 {
		result.AdjustedSize *= 0.80
		if result.AdjustmentReason == "" {
			result.AdjustmentReason = "correlation_reduction"
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("size reduced 20%% for portfolio correlation %.2f", req.CorrelationWithPortfolio))
	}

	if result.AdjustedSize < limits.MinPositionSize {
		result.Approved = false
		result.AdjustedSize = 0
		result.AdjustmentReason = "below_minimum_size"
		return result
	}

	result.Approved = true
	if result.AdjustmentReason == "" {
		result.AdjustmentReason = "approved_as_requested"
	}
	return result
}

// AssessDiversificationRisk recommends a maximum position for a proposed
// trade based on how much of the portfolio it would concentrate in one symbol.
func (c *Calculator) AssessDiversificationRisk(tradeValue, portfolioValue, correlation float64) DiversificationAssessment {
	var concentration float64
	if portfolioValue > 0 {
		concentration = tradeValue / portfolioValue * 100
	} else if tradeValue > 0 {
		concentration = 100
	}

	var (
		level  DiversificationLevel
		factor float64
		advice string
	)
	switch {
	case concentration < 8:
		level, factor = DiversificationLow, 0.95
		advice = "concentration acceptable"
	case concentration <= 15:
		level, factor = DiversificationMedium, 0.92
		advice = "moderate concentration, monitor portfolio balance"
	default:
		level, factor = DiversificationHigh, 0.70
		advice = "high concentration, reduce position or diversify first"
	}

	if correlation > 0.7 {
		factor *= 0.80
		advice += "; high correlation with existing holdings"
	}

	return DiversificationAssessment{
		Level:                  level,
		ConcentrationPercent:   concentration,
		RecommendedMaxPosition: tradeValue * factor,
		Recommendation:         advice,
	}
}

func sizeRatio(positionSize, portfolioValue float64) float64 {
	if portfolioValue <= 0 || positionSize <= 0 {
		return 0
	}
	return math.Min(positionSize/portfolioValue, 1)
}

func clampPercent(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
