package stress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
)

func newTestTester(t *testing.T) (*Tester, *market.Store) {
	t.Helper()
	manager, err := config.NewManager(config.BalancedConfig())
	require.NoError(t, err)
	store := market.NewStore(manager.Current().Risk)
	return NewTester(manager, store, nil), store
}

func fptr(v float64) *float64 { return &v }

// TestPerformStressTest_MarketCrash tests the loss model for a single position
// under the standing market-crash scenario
func TestPerformStressTest_MarketCrash(t *testing.T) {
	tester, store := newTestTester(t)
	require.NoError(t, store.UpdatePosition(market.PositionRiskProfile{
		Symbol: "BTCUSDT", Size: 10000, Leverage: 1, ValueAtRisk: 500,
	}))

	results := tester.PerformStressTest(Scenario{
		Name:                 "Market Crash",
		PriceChangePercent:   -20,
		VolatilityMultiplier: 3,
	})
	require.Len(t, results, 1)

	result := results[0]
	// Direct price damage 2000 plus VaR widening 500*(3-1)
	assert.InDelta(t, 3000.0, result.EstimatedLoss, 0.001)
	assert.InDelta(t, 30.0, result.PortfolioImpact, 0.001)
	assert.InDelta(t, 60.0, result.RiskScore, 0.001)
	assert.Equal(t, 1, result.PositionsAffected)
	assert.True(t, result.Survivable)
}

// TestPerformStressTest_DefaultScenarios tests that an empty scenario list runs
// the standing set
func TestPerformStressTest_DefaultScenarios(t *testing.T) {
	tester, store := newTestTester(t)
	require.NoError(t, store.UpdatePosition(market.PositionRiskProfile{
		Symbol: "BTCUSDT", Size: 5000, Leverage: 1, ValueAtRisk: 200,
	}))

	results := tester.PerformStressTest()
	require.Len(t, results, 3)

	names := []string{results[0].Scenario.Name, results[1].Scenario.Name, results[2].Scenario.Name}
	assert.Contains(t, names, "Market Crash")
	assert.Contains(t, names, "Flash Crash")
	assert.Contains(t, names, "High Volatility")
	for _, result := range results {
		assert.GreaterOrEqual(t, result.RiskScore, 0.0)
		assert.LessOrEqual(t, result.RiskScore, 100.0)
	}
}

// TestPerformStressTest_EmptyPortfolio tests that an empty book takes no damage
func TestPerformStressTest_EmptyPortfolio(t *testing.T) {
	tester, _ := newTestTester(t)

	results := tester.PerformStressTest()
	for _, result := range results {
		assert.Equal(t, 0.0, result.EstimatedLoss)
		assert.Equal(t, 0.0, result.PortfolioImpact)
		assert.True(t, result.Survivable)
	}
}

// TestPerformStressTest_UnsurvivableLoss tests the survivability cutoff
func TestPerformStressTest_UnsurvivableLoss(t *testing.T) {
	tester, store := newTestTester(t)
	require.NoError(t, store.UpdatePosition(market.PositionRiskProfile{
		Symbol: "BTCUSDT", Size: 10000, Leverage: 3, ValueAtRisk: 3000,
	}))

	results := tester.PerformStressTest(Scenario{
		Name:                 "Severe Crash",
		PriceChangePercent:   -40,
		VolatilityMultiplier: 4,
	})
	require.Len(t, results, 1)

	// Loss 4000 + 9000 on a 10000 book
	assert.Greater(t, results[0].PortfolioImpact, 50.0)
	assert.False(t, results[0].Survivable)
	assert.Equal(t, 100.0, results[0].RiskScore)
}

// TestDetectFlashCrash_DropWithVolumeSpike tests the crash signature on a
// sharp drop coinciding with a volume spike
func TestDetectFlashCrash_DropWithVolumeSpike(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.DetectFlashCrash([]PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 85, Volume: 5000},
		{Price: 80, Volume: 1200},
	})

	assert.True(t, result.IsFlashCrash)
	assert.InDelta(t, 15.0, result.DrawdownPercent, 0.001)
	assert.InDelta(t, 5.0, result.VolumeSpike, 0.001)
	assert.Equal(t, SeverityMedium, result.Severity)
}

// TestDetectFlashCrash_TooFewSamples tests the minimum-sample guard
func TestDetectFlashCrash_TooFewSamples(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.DetectFlashCrash([]PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 80, Volume: 9000},
	})

	assert.False(t, result.IsFlashCrash)
}

// TestDetectFlashCrash_DropWithoutSpike tests that a drop on flat volume is
// not graded as a flash crash
func TestDetectFlashCrash_DropWithoutSpike(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.DetectFlashCrash([]PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 85, Volume: 1100},
		{Price: 80, Volume: 1050},
	})

	assert.False(t, result.IsFlashCrash)
}

// TestDetectFlashCrash_SpikeWithoutDrop tests that a volume spike on a stable
// price is not graded as a flash crash
func TestDetectFlashCrash_SpikeWithoutDrop(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.DetectFlashCrash([]PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 99, Volume: 8000},
		{Price: 100, Volume: 1200},
	})

	assert.False(t, result.IsFlashCrash)
	assert.Greater(t, result.VolumeSpike, 3.0)
}

// TestDetectFlashCrash_SeverityGrades tests the severity bands on deeper drops
func TestDetectFlashCrash_SeverityGrades(t *testing.T) {
	tester, _ := newTestTester(t)

	high := tester.DetectFlashCrash([]PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 75, Volume: 6000},
		{Price: 74, Volume: 1000},
	})
	assert.True(t, high.IsFlashCrash)
	assert.Equal(t, SeverityHigh, high.Severity)

	critical := tester.DetectFlashCrash([]PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 65, Volume: 6000},
		{Price: 64, Volume: 1000},
	})
	assert.True(t, critical.IsFlashCrash)
	assert.Equal(t, SeverityCritical, critical.Severity)
}

// TestDetectManipulation_AllIndicators tests the additive score at full signal
func TestDetectManipulation_AllIndicators(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.DetectManipulation(ManipulationActivity{
		PriceMovementPercent:          150,
		VolumeAnomalyPercent:          40,
		OrderBookSpoofing:             true,
		CrossExchangeDeviationPercent: 20,
		CoordinatedTrading:            true,
	})

	assert.InDelta(t, 1.0, result.Score, 0.001)
	assert.Len(t, result.Indicators, 5)
	assert.Equal(t, "halt_trading", result.RecommendedAction)
}

// TestDetectManipulation_ActionThresholds tests the recommended-action bands
func TestDetectManipulation_ActionThresholds(t *testing.T) {
	tester, _ := newTestTester(t)

	none := tester.DetectManipulation(ManipulationActivity{})
	assert.Equal(t, 0.0, none.Score)
	assert.Equal(t, "none", none.RecommendedAction)

	monitor := tester.DetectManipulation(ManipulationActivity{PriceMovementPercent: 150})
	assert.InDelta(t, 0.3, monitor.Score, 0.001)
	assert.Equal(t, "monitor", monitor.RecommendedAction)

	reduce := tester.DetectManipulation(ManipulationActivity{
		PriceMovementPercent: 150,
		VolumeAnomalyPercent: 40,
		OrderBookSpoofing:    true,
	})
	assert.InDelta(t, 0.7, reduce.Score, 0.001)
	assert.Equal(t, "reduce_exposure", reduce.RecommendedAction)
}

// TestDetectLiquidityCrisis_CalmMarket tests the all-clear on default conditions
func TestDetectLiquidityCrisis_CalmMarket(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.DetectLiquidityCrisis()

	assert.False(t, result.IsCrisis)
	assert.Equal(t, SeverityLow, result.Severity)
	assert.Empty(t, result.Findings)
}

// TestDetectLiquidityCrisis_DrainedBook tests detection when every liquidity
// signal has collapsed
func TestDetectLiquidityCrisis_DrainedBook(t *testing.T) {
	tester, store := newTestTester(t)
	require.NoError(t, store.UpdateConditions(market.ConditionsUpdate{
		LiquidityIndex: fptr(5),
		BidAskSpread:   fptr(0.8),
		OrderBookDepth: fptr(4),
	}))

	result := tester.DetectLiquidityCrisis()

	assert.True(t, result.IsCrisis)
	assert.Equal(t, SeverityCritical, result.Severity)
	assert.Len(t, result.Findings, 3)
}

// TestValidateTradeSafety_CalmMarket tests the combined verdict with nothing wrong
func TestValidateTradeSafety_CalmMarket(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.ValidateTradeSafety("BTCUSDT", nil, ManipulationActivity{})

	assert.True(t, result.Safe)
	assert.Empty(t, result.Issues)
}

// TestValidateTradeSafety_FlashCrashBlocks tests that an active flash crash
// marks the trade unsafe
func TestValidateTradeSafety_FlashCrashBlocks(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.ValidateTradeSafety("BTCUSDT", []PriceSample{
		{Price: 100, Volume: 1000},
		{Price: 85, Volume: 5000},
		{Price: 80, Volume: 1200},
	}, ManipulationActivity{})

	assert.False(t, result.Safe)
	assert.True(t, result.FlashCrash.IsFlashCrash)
	assert.NotEmpty(t, result.Issues)
}

// TestValidateTradeSafety_MonitorOnlyStaysSafe tests that a monitor-level
// manipulation score notes the issue without blocking the trade
func TestValidateTradeSafety_MonitorOnlyStaysSafe(t *testing.T) {
	tester, _ := newTestTester(t)

	result := tester.ValidateTradeSafety("BTCUSDT", nil, ManipulationActivity{
		PriceMovementPercent: 150,
	})

	assert.True(t, result.Safe)
	assert.NotEmpty(t, result.Issues)
}

// TestValidateTradeSafety_EmergencyConditionsBlock tests that emergency market
// conditions alone make the trade unsafe
func TestValidateTradeSafety_EmergencyConditionsBlock(t *testing.T) {
	tester, store := newTestTester(t)
	require.NoError(t, store.UpdateConditions(market.ConditionsUpdate{
		VolatilityIndex: fptr(95),
	}))

	result := tester.ValidateTradeSafety("BTCUSDT", nil, ManipulationActivity{})

	assert.False(t, result.Safe)
	assert.Contains(t, result.Issues, "emergency market conditions active")
}
