package config

import "time"

// Preset names accepted by PresetByName
const (
	PresetConservative = "conservative"
	PresetBalanced     = "balanced"
	PresetAggressive   = "aggressive"
	PresetEmergency    = "emergency"
)

// BalancedConfig returns the default configuration suitable for most accounts
func BalancedConfig() *SafetyConfig {
	cfg := &SafetyConfig{
		Preset: PresetBalanced,
		Thresholds: SafetyThresholds{
			MaxDrawdownPercent:      15.0,
			MinSuccessRate:          55.0,
			MaxConsecutiveLosses:    5,
			MaxAPILatencyMs:         2000,
			MinPatternAccuracy:      60.0,
			MaxMemoryUsageMB:        512,
			MaxConcentrationPercent: 40.0,
		},
		Risk: RiskLimits{
			MaxSinglePositionSize:         15000,
			MaxPortfolioValue:             100000,
			MaxRiskScore:                  75,
			MinPositionSize:               10,
			EmergencyVolatilityThreshold:  85,
			EmergencyLiquidityThreshold:   20,
			EmergencyCorrelationThreshold: 0.9,
		},
		MonitoringInterval:      30 * time.Second,
		RiskAssessmentInterval:  60 * time.Second,
		AlertCleanupInterval:    10 * time.Minute,
		AlertRetentionHours:     24,
		AutoActionEnabled:       true,
		CoordinationTick:        5 * time.Second,
		MaxConcurrentOperations: 3,
		OperationTimeout:        30 * time.Second,
	}
	return cfg
}

// ConservativeConfig returns a preset with tight limits and frequent checks
func ConservativeConfig() *SafetyConfig {
	cfg := BalancedConfig()
	cfg.Preset = PresetConservative
	cfg.Thresholds.MaxDrawdownPercent = 8.0
	cfg.Thresholds.MinSuccessRate = 65.0
	cfg.Thresholds.MaxConsecutiveLosses = 3
	cfg.Thresholds.MaxConcentrationPercent = 25.0
	cfg.Risk.MaxSinglePositionSize = 5000
	cfg.Risk.MaxPortfolioValue = 50000
	cfg.Risk.MaxRiskScore = 60
	cfg.Risk.EmergencyVolatilityThreshold = 70
	cfg.Risk.EmergencyLiquidityThreshold = 30
	cfg.Risk.EmergencyCorrelationThreshold = 0.8
	cfg.MonitoringInterval = 15 * time.Second
	return cfg
}

// AggressiveConfig returns a preset with loose limits for high-risk accounts
func AggressiveConfig() *SafetyConfig {
	cfg := BalancedConfig()
	cfg.Preset = PresetAggressive
	cfg.Thresholds.MaxDrawdownPercent = 25.0
	cfg.Thresholds.MinSuccessRate = 45.0
	cfg.Thresholds.MaxConsecutiveLosses = 8
	cfg.Thresholds.MaxConcentrationPercent = 60.0
	cfg.Risk.MaxSinglePositionSize = 50000
	cfg.Risk.MaxPortfolioValue = 500000
	cfg.Risk.MaxRiskScore = 85
	cfg.Risk.EmergencyVolatilityThreshold = 95
	cfg.Risk.EmergencyLiquidityThreshold = 10
	cfg.MonitoringInterval = 60 * time.Second
	return cfg
}

// EmergencyConfig returns the lockdown preset applied when the system enters
// emergency mode: minimal limits, tightest checks, auto-actions forced on.
func EmergencyConfig() *SafetyConfig {
	cfg := BalancedConfig()
	cfg.Preset = PresetEmergency
	cfg.Thresholds.MaxDrawdownPercent = 5.0
	cfg.Thresholds.MinSuccessRate = 70.0
	cfg.Thresholds.MaxConsecutiveLosses = 2
	cfg.Thresholds.MaxConcentrationPercent = 15.0
	cfg.Risk.MaxSinglePositionSize = 1000
	cfg.Risk.MaxPortfolioValue = 10000
	cfg.Risk.MaxRiskScore = 40
	cfg.Risk.EmergencyVolatilityThreshold = 50
	cfg.Risk.EmergencyLiquidityThreshold = 50
	cfg.Risk.EmergencyCorrelationThreshold = 0.6
	cfg.MonitoringInterval = 10 * time.Second
	cfg.AutoActionEnabled = true
	return cfg
}

// PresetByName returns the named preset, or nil when the name is unknown
func PresetByName(name string) *SafetyConfig {
	switch name {
	case PresetConservative:
		return ConservativeConfig()
	case PresetBalanced:
		return BalancedConfig()
	case PresetAggressive:
		return AggressiveConfig()
	case PresetEmergency:
		return EmergencyConfig()
	default:
		return nil
	}
}
