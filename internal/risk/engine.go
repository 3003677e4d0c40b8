package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
)

// Sub-score weights of the composite trade risk score. They sum to 1.0.
const (
	weightPositionSize    = 0.25
	weightConcentration   = 0.20
	weightCorrelation     = 0.15
	weightMarket          = 0.20
	weightLiquidity       = 0.10
	weightPortfolioImpact = 0.10
)

// Z-scores for the supported VaR confidence levels
const (
	zScore95      = 1.645
	zScoreDefault = 1.96
)

// expectedShortfallMultiple is the fixed ES/VaR ratio; ES is not modeled
// independently.
const expectedShortfallMultiple = 1.3

// Engine scores individual proposed trades against the configured risk limits
// and the current market conditions. It is safe for concurrent use: all
// mutable state lives in the config manager and the market store.
type Engine struct {
	cfg             *config.Manager
	store           *market.Store
	log             *logger.Logger
	confidenceLevel float64
}

// NewEngine creates a trade risk engine with a 95% VaR confidence level
func NewEngine(cfg *config.Manager, store *market.Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Engine{
		cfg:             cfg,
		store:           store,
		log:             log,
		confidenceLevel: 0.95,
	}
}

// AssessTradeRisk scores a proposed trade and decides whether it may proceed.
// The assessment fails closed: if the scoring pipeline itself panics, the
// trade is rejected with a risk score of 100 rather than approved by default.
func (e *Engine) AssessTradeRisk(symbol string, side TradeSide, quantity, price float64) (assessment *TradeAssessment) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("trade risk assessment panicked for %s: %v", symbol, r)
			assessment = &TradeAssessment{
				Symbol:    symbol,
				Side:      side,
				Approved:  false,
				RiskScore: 100,
				Reasons:   []string{fmt.Sprintf("risk assessment failed internally: %v", r)},
				Timestamp: time.Now(),
			}
		}
	}()

	tradeValue := quantity * price
	assessment = &TradeAssessment{
		Symbol:     symbol,
		Side:       side,
		TradeValue: tradeValue,
		Timestamp:  time.Now(),
	}

	if symbol == "" || quantity <= 0 || price <= 0 ||
		math.IsNaN(tradeValue) || math.IsInf(tradeValue, 0) {
		assessment.RiskScore = 100
		assessment.Reasons = append(assessment.Reasons,
			fmt.Sprintf("invalid trade parameters: symbol=%q quantity=%.4f price=%.4f", symbol, quantity, price))
		return assessment
	}

	limits := e.cfg.Current().Risk
	conditions := e.store.Conditions()
	portfolio := e.store.PortfolioMetrics()

	subScores := e.calculateSubScores(tradeValue, portfolio, conditions, limits)
	adjustments := e.calculateAdjustments(conditions)

	composite := subScores.PositionSize*weightPositionSize +
		subScores.Concentration*weightConcentration +
		subScores.Correlation*weightCorrelation +
		subScores.Market*weightMarket +
		subScores.Liquidity*weightLiquidity +
		subScores.PortfolioImpact*weightPortfolioImpact

	score := math.Min(composite*adjustments.Volatility*adjustments.Liquidity*adjustments.Sentiment, 100)
	assessment.RiskScore = score

	assessment.MaxAllowedSize = e.maxAllowedSize(score, portfolio.TotalValue, limits)
	if newValue := portfolio.TotalValue + tradeValue; newValue > 0 {
		assessment.EstimatedImpact = tradeValue / newValue * 100
	}

	volatility := conditions.VolatilityIndex / 100
	z := zScoreDefault
	if e.confidenceLevel == 0.95 {
		z = zScore95
	}
	valueAtRisk := tradeValue * volatility * z
	assessment.Metrics = AdvancedMetrics{
		ValueAtRisk:       valueAtRisk,
		ExpectedShortfall: valueAtRisk * expectedShortfallMultiple,
		SubScores:         subScores,
		Adjustments:       adjustments,
	}

	e.decide(assessment, tradeValue, portfolio.TotalValue, limits)

	if e.store.IsEmergencyConditions() {
		assessment.Warnings = append(assessment.Warnings, "emergency market conditions active")
	}
	if score > 50 && score <= limits.MaxRiskScore {
		assessment.Warnings = append(assessment.Warnings,
			fmt.Sprintf("elevated risk score %.1f, consider reducing size", score))
	}

	e.log.Info("trade assessment %s %s value=%.2f score=%.1f approved=%t",
		symbol, side, tradeValue, score, assessment.Approved)
	return assessment
}

func (e *Engine) calculateSubScores(tradeValue float64, portfolio market.PortfolioRiskMetrics, conditions market.Conditions, limits config.RiskLimits) SubScores {
	var s SubScores

	s.PositionSize = math.Min(tradeValue/limits.MaxSinglePositionSize*100, 100)

	// With no open positions the concentration basis falls back to the
	// configured portfolio capacity; otherwise the first trade would always
	// look maximally concentrated.
	basis := portfolio.TotalValue
	if basis <= 0 {
		basis = limits.MaxPortfolioValue
	}
	s.Concentration = math.Min(tradeValue/basis*2*100, 100)

	s.Correlation = math.Min(conditions.CorrelationRisk*100, 100)

	s.Market = math.Min(conditions.VolatilityIndex*sentimentMultiplier(conditions.Sentiment), 100)

	s.Liquidity = math.Max(0, math.Min(100-conditions.LiquidityIndex, 100))

	if newValue := portfolio.TotalValue + tradeValue; newValue > 0 {
		s.PortfolioImpact = math.Min(tradeValue/newValue*100, 100)
	}

	return s
}

func (e *Engine) calculateAdjustments(conditions market.Conditions) AdjustmentFactors {
	f := AdjustmentFactors{Volatility: 1, Liquidity: 1, Sentiment: 1}

	if conditions.VolatilityIndex > 50 {
		f.Volatility = 1 + (conditions.VolatilityIndex-50)/100
	}
	if conditions.LiquidityIndex < 30 {
		f.Liquidity = 1 + (30-conditions.LiquidityIndex)/100
	}
	switch conditions.Sentiment {
	case market.SentimentVolatile:
		f.Sentiment = 1.2
	case market.SentimentBearish:
		f.Sentiment = 1.1
	}

	return f
}

// maxAllowedSize shrinks the configured single-position cap stepwise as the
// risk score climbs, then bounds it by the remaining portfolio capacity.
func (e *Engine) maxAllowedSize(score, portfolioValue float64, limits config.RiskLimits) float64 {
	allowed := limits.MaxSinglePositionSize
	switch {
	case score > 70:
		allowed *= 0.50
	case score > 50:
		allowed *= 0.70
	case score > 30:
		allowed *= 0.90
	}

	remaining := math.Max(0, limits.MaxPortfolioValue-portfolioValue)
	return math.Min(allowed, remaining)
}

func (e *Engine) decide(a *TradeAssessment, tradeValue, portfolioValue float64, limits config.RiskLimits) {
	approved := true

	if a.RiskScore > limits.MaxRiskScore {
		approved = false
		a.Reasons = append(a.Reasons,
			fmt.Sprintf("risk score %.1f exceeds maximum %.1f", a.RiskScore, limits.MaxRiskScore))
	}
	if tradeValue > a.MaxAllowedSize {
		approved = false
		a.Reasons = append(a.Reasons,
			fmt.Sprintf("trade value %.2f exceeds max allowed size %.2f", tradeValue, a.MaxAllowedSize))
	}
	if portfolioValue+tradeValue > limits.MaxPortfolioValue {
		approved = false
		a.Reasons = append(a.Reasons,
			fmt.Sprintf("post-trade portfolio value %.2f exceeds limit %.2f",
				portfolioValue+tradeValue, limits.MaxPortfolioValue))
	}

	a.Approved = approved
}

func sentimentMultiplier(s market.Sentiment) float64 {
	switch s {
	case market.SentimentVolatile:
		return 1.3
	case market.SentimentBearish:
		return 1.15
	case market.SentimentBullish:
		return 0.9
	default:
		return 1.0
	}
}
