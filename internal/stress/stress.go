// Package stress runs named shock scenarios against the live portfolio and
// screens price action for flash crashes, manipulation patterns and
// liquidity crises.
package stress

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
)

// Flash-crash detection thresholds
const (
	flashCrashMinSamples    = 3
	flashCrashDrawdownMin   = 10.0 // percent
	flashCrashVolumeSpike   = 3.0  // peak vs trailing average
	manipulationMonitor     = 0.3
	manipulationReduce      = 0.6
	manipulationHalt        = 0.8
	survivableLossThreshold = 50.0 // percent of portfolio value
)

// Tester applies stress scenarios and anomaly heuristics to the current
// portfolio and market state.
type Tester struct {
	cfg   *config.Manager
	store *market.Store
	log   *logger.Logger
}

// NewTester creates a stress tester
func NewTester(cfg *config.Manager, store *market.Store, log *logger.Logger) *Tester {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Tester{cfg: cfg, store: store, log: log}
}

// DefaultScenarios are the standing shocks every stress run covers
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:                 "Market Crash",
			Description:          "broad 20% drop with tripled volatility",
			PriceChangePercent:   -20,
			VolatilityMultiplier: 3,
		},
		{
			Name:                 "Flash Crash",
			Description:          "sudden 10% drop, 5x volatility, order books drained",
			PriceChangePercent:   -10,
			VolatilityMultiplier: 5,
			LiquidityLossPercent: 80,
		},
		{
			Name:                 "High Volatility",
			Description:          "sideways chop at 4x volatility",
			PriceChangePercent:   0,
			VolatilityMultiplier: 4,
		},
	}
}

// PerformStressTest estimates portfolio damage under each scenario. With no
// scenarios given the default set is used. Loss per position is the direct
// price move plus the widening of its value-at-risk band.
func (t *Tester) PerformStressTest(scenarios ...Scenario) []ScenarioResult {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}

	positions := t.store.Positions()
	portfolio := t.store.PortfolioMetrics()

	results := make([]ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		var loss float64
		for _, p := range positions {
			loss += math.Abs(sc.PriceChangePercent/100*p.Size) +
				p.ValueAtRisk*(sc.VolatilityMultiplier-1)
		}

		var impact float64
		if portfolio.TotalValue > 0 {
			impact = loss / portfolio.TotalValue * 100
		}

		result := ScenarioResult{
			Scenario:          sc,
			EstimatedLoss:     loss,
			PortfolioImpact:   impact,
			RiskScore:         math.Min(impact*2, 100),
			PositionsAffected: len(positions),
			Survivable:        impact < survivableLossThreshold,
			Timestamp:         time.Now(),
		}
		results = append(results, result)

		t.log.Info("stress scenario %q: loss=%.2f impact=%.1f%% score=%.1f",
			sc.Name, loss, impact, result.RiskScore)
	}

	return results
}

// DetectFlashCrash screens a price sequence for a crash signature: a sharp
// drop from the opening sample coinciding with a volume spike well above the
// trailing average. Needs at least three samples to say anything.
func (t *Tester) DetectFlashCrash(samples []PriceSample) FlashCrashResult {
	var result FlashCrashResult
	if len(samples) < flashCrashMinSamples {
		return result
	}

	first := samples[0]
	if first.Price <= 0 {
		return result
	}

	// Locate the volume spike and measure the drop at that point. The
	// trailing average only covers samples before the spike.
	spikeIdx := 0
	for i, s := range samples {
		if s.Volume > samples[spikeIdx].Volume {
			spikeIdx = i
		}
	}
	if spikeIdx == 0 {
		return result
	}

	var trailingSum float64
	for _, s := range samples[:spikeIdx] {
		trailingSum += s.Volume
	}
	trailingAvg := trailingSum / float64(spikeIdx)
	if trailingAvg > 0 {
		result.VolumeSpike = samples[spikeIdx].Volume / trailingAvg
	}

	result.DrawdownPercent = (first.Price - samples[spikeIdx].Price) / first.Price * 100

	result.IsFlashCrash = result.DrawdownPercent > flashCrashDrawdownMin &&
		result.VolumeSpike > flashCrashVolumeSpike
	result.Severity = severityForDrawdown(result.DrawdownPercent)

	if result.IsFlashCrash {
		t.log.Alert("flash crash detected: drawdown=%.1f%% volume spike=%.1fx severity=%s",
			result.DrawdownPercent, result.VolumeSpike, result.Severity)
	}
	return result
}

// DetectManipulation accumulates five independent indicators into a 0-1
// score. The indicators are deliberately additive so any combination of
// partial signals can still cross the action thresholds.
func (t *Tester) DetectManipulation(activity ManipulationActivity) ManipulationResult {
	var result ManipulationResult

	if math.Abs(activity.PriceMovementPercent) > 100 {
		result.Score += 0.3
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("rapid price movement %.0f%%", activity.PriceMovementPercent))
	}
	if activity.VolumeAnomalyPercent > 30 {
		result.Score += 0.2
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("volume anomaly %.0f%%", activity.VolumeAnomalyPercent))
	}
	if activity.OrderBookSpoofing {
		result.Score += 0.2
		result.Indicators = append(result.Indicators, "order book spoofing pattern")
	}
	if activity.CrossExchangeDeviationPercent > 15 {
		result.Score += 0.2
		result.Indicators = append(result.Indicators,
			fmt.Sprintf("cross-exchange deviation %.0f%%", activity.CrossExchangeDeviationPercent))
	}
	if activity.CoordinatedTrading {
		result.Score += 0.1
		result.Indicators = append(result.Indicators, "coordinated trading pattern")
	}

	switch {
	case result.Score >= manipulationHalt:
		result.RecommendedAction = "halt_trading"
	case result.Score >= manipulationReduce:
		result.RecommendedAction = "reduce_exposure"
	case result.Score >= manipulationMonitor:
		result.RecommendedAction = "monitor"
	default:
		result.RecommendedAction = "none"
	}

	if result.Score >= manipulationReduce {
		t.log.Alert("manipulation score %.2f: %v", result.Score, result.Indicators)
	}
	return result
}

// DetectLiquidityCrisis checks whether the market can still absorb an exit
// at reasonable cost, using the current conditions snapshot.
func (t *Tester) DetectLiquidityCrisis() LiquidityCrisisResult {
	var result LiquidityCrisisResult
	conditions := t.store.Conditions()
	limits := t.cfg.Current().Risk

	if conditions.LiquidityIndex < limits.EmergencyLiquidityThreshold {
		result.IsCrisis = true
		result.Findings = append(result.Findings,
			fmt.Sprintf("liquidity index %.1f below emergency threshold %.1f",
				conditions.LiquidityIndex, limits.EmergencyLiquidityThreshold))
	}
	if conditions.BidAskSpread > 0.5 {
		result.IsCrisis = true
		result.Findings = append(result.Findings,
			fmt.Sprintf("bid/ask spread widened to %.2f%%", conditions.BidAskSpread))
	}
	if conditions.OrderBookDepth < 10 {
		result.IsCrisis = true
		result.Findings = append(result.Findings,
			fmt.Sprintf("order book depth collapsed to %.1f", conditions.OrderBookDepth))
	}

	switch {
	case conditions.LiquidityIndex < 10:
		result.Severity = SeverityCritical
	case conditions.LiquidityIndex < limits.EmergencyLiquidityThreshold:
		result.Severity = SeverityHigh
	case result.IsCrisis:
		result.Severity = SeverityMedium
	default:
		result.Severity = SeverityLow
	}

	return result
}

// ValidateTradeSafety runs every anomaly heuristic against one proposed
// trade. Safe means no heuristic demands intervention; a "monitor"
// manipulation verdict only produces an issue note, not a rejection.
func (t *Tester) ValidateTradeSafety(symbol string, samples []PriceSample, activity ManipulationActivity) TradeSafetyResult {
	result := TradeSafetyResult{
		Safe:      true,
		Timestamp: time.Now(),
	}

	result.FlashCrash = t.DetectFlashCrash(samples)
	if result.FlashCrash.IsFlashCrash {
		result.Safe = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("flash crash in progress on %s (%s)", symbol, result.FlashCrash.Severity))
	}

	result.Manipulation = t.DetectManipulation(activity)
	switch result.Manipulation.RecommendedAction {
	case "halt_trading", "reduce_exposure":
		result.Safe = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("manipulation score %.2f on %s, recommended action: %s",
				result.Manipulation.Score, symbol, result.Manipulation.RecommendedAction))
	case "monitor":
		result.Issues = append(result.Issues,
			fmt.Sprintf("manipulation indicators present on %s, monitoring", symbol))
	}

	result.Liquidity = t.DetectLiquidityCrisis()
	if result.Liquidity.IsCrisis {
		result.Safe = false
		result.Issues = append(result.Issues, "liquidity crisis conditions active")
	}

	if t.store.IsEmergencyConditions() {
		result.Safe = false
		result.Issues = append(result.Issues, "emergency market conditions active")
	}

	return result
}

func severityForDrawdown(drawdown float64) FlashCrashSeverity {
	switch {
	case drawdown >= 30:
		return SeverityCritical
	case drawdown >= 20:
		return SeverityHigh
	case drawdown >= 15:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
