package config

import (
	"fmt"
	"time"
)

// Validate checks the configuration for values that would make the safety
// monitor misbehave. It returns the first problem found.
func (c *SafetyConfig) Validate() error {
	if c.Thresholds.MaxDrawdownPercent <= 0 || c.Thresholds.MaxDrawdownPercent > 100 {
		return fmt.Errorf("max drawdown percent must be in (0, 100], got %.2f", c.Thresholds.MaxDrawdownPercent)
	}
	if c.Thresholds.MinSuccessRate < 0 || c.Thresholds.MinSuccessRate > 100 {
		return fmt.Errorf("min success rate must be in [0, 100], got %.2f", c.Thresholds.MinSuccessRate)
	}
	if c.Thresholds.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("max consecutive losses must be positive, got %d", c.Thresholds.MaxConsecutiveLosses)
	}
	if c.Thresholds.MaxAPILatencyMs <= 0 {
		return fmt.Errorf("max API latency must be positive, got %.0fms", c.Thresholds.MaxAPILatencyMs)
	}
	if c.Thresholds.MinPatternAccuracy < 0 || c.Thresholds.MinPatternAccuracy > 100 {
		return fmt.Errorf("min pattern accuracy must be in [0, 100], got %.2f", c.Thresholds.MinPatternAccuracy)
	}
	if c.Thresholds.MaxConcentrationPercent <= 0 || c.Thresholds.MaxConcentrationPercent > 100 {
		return fmt.Errorf("max concentration percent must be in (0, 100], got %.2f", c.Thresholds.MaxConcentrationPercent)
	}

	if c.Risk.MaxSinglePositionSize <= 0 {
		return fmt.Errorf("max single position size must be positive, got %.2f", c.Risk.MaxSinglePositionSize)
	}
	if c.Risk.MaxPortfolioValue <= 0 {
		return fmt.Errorf("max portfolio value must be positive, got %.2f", c.Risk.MaxPortfolioValue)
	}
	if c.Risk.MaxSinglePositionSize > c.Risk.MaxPortfolioValue {
		return fmt.Errorf("max single position size %.2f exceeds max portfolio value %.2f",
			c.Risk.MaxSinglePositionSize, c.Risk.MaxPortfolioValue)
	}
	if c.Risk.MaxRiskScore <= 0 || c.Risk.MaxRiskScore > 100 {
		return fmt.Errorf("max risk score must be in (0, 100], got %.2f", c.Risk.MaxRiskScore)
	}
	if c.Risk.MinPositionSize < 0 {
		return fmt.Errorf("min position size must not be negative, got %.2f", c.Risk.MinPositionSize)
	}
	if c.Risk.EmergencyVolatilityThreshold <= 0 || c.Risk.EmergencyVolatilityThreshold > 100 {
		return fmt.Errorf("emergency volatility threshold must be in (0, 100], got %.2f", c.Risk.EmergencyVolatilityThreshold)
	}
	if c.Risk.EmergencyLiquidityThreshold < 0 || c.Risk.EmergencyLiquidityThreshold >= 100 {
		return fmt.Errorf("emergency liquidity threshold must be in [0, 100), got %.2f", c.Risk.EmergencyLiquidityThreshold)
	}
	if c.Risk.EmergencyCorrelationThreshold <= 0 || c.Risk.EmergencyCorrelationThreshold > 1 {
		return fmt.Errorf("emergency correlation threshold must be in (0, 1], got %.2f", c.Risk.EmergencyCorrelationThreshold)
	}

	if c.MonitoringInterval < time.Second {
		return fmt.Errorf("monitoring interval must be at least 1s, got %v", c.MonitoringInterval)
	}
	if c.RiskAssessmentInterval < time.Second {
		return fmt.Errorf("risk assessment interval must be at least 1s, got %v", c.RiskAssessmentInterval)
	}
	if c.AlertCleanupInterval < time.Second {
		return fmt.Errorf("alert cleanup interval must be at least 1s, got %v", c.AlertCleanupInterval)
	}
	if c.AlertRetentionHours <= 0 {
		return fmt.Errorf("alert retention hours must be positive, got %d", c.AlertRetentionHours)
	}

	if c.CoordinationTick < 100*time.Millisecond {
		return fmt.Errorf("coordination tick must be at least 100ms, got %v", c.CoordinationTick)
	}
	if c.MaxConcurrentOperations <= 0 {
		return fmt.Errorf("max concurrent operations must be positive, got %d", c.MaxConcurrentOperations)
	}
	if c.OperationTimeout < time.Second {
		return fmt.Errorf("operation timeout must be at least 1s, got %v", c.OperationTimeout)
	}

	return nil
}
