package config

import (
	"fmt"
	"sync"
	"time"
)

// ConfigUpdate records a single field change applied through the Manager
type ConfigUpdate struct {
	Field     string      `json:"field"`
	OldValue  interface{} `json:"old_value"`
	NewValue  interface{} `json:"new_value"`
	Timestamp time.Time   `json:"timestamp"`
}

// Manager owns the live SafetyConfig. Readers get a copy, writers replace the
// whole struct after validation, and every accepted change lands in the
// update-history audit log.
type Manager struct {
	mu      sync.RWMutex
	current *SafetyConfig
	history []ConfigUpdate
	version int
}

// NewManager creates a configuration manager seeded with cfg.
// The seed is validated so a broken initial configuration fails fast.
func NewManager(cfg *SafetyConfig) (*Manager, error) {
	if cfg == nil {
		cfg = BalancedConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("initial configuration invalid: %w", err)
	}
	return &Manager{
		current: cfg,
		history: make([]ConfigUpdate, 0, 64),
		version: 1,
	}, nil
}

// Current returns a copy of the active configuration
func (m *Manager) Current() SafetyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.current
}

// Version returns the configuration version, incremented on every swap
func (m *Manager) Version() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Apply validates the replacement configuration and swaps it in atomically.
// Field-level diffs against the previous configuration are appended to the
// update history. Rejected configurations leave the current one untouched.
func (m *Manager) Apply(next *SafetyConfig) error {
	if next == nil {
		return fmt.Errorf("configuration must not be nil")
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("configuration rejected: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, change := range diffConfigs(m.current, next) {
		change.Timestamp = now
		m.history = append(m.history, change)
	}

	m.current = next
	m.version++
	return nil
}

// ApplyPreset swaps in a named preset, preserving the exchange, notification
// and monitoring-port settings that presets do not cover.
func (m *Manager) ApplyPreset(name string) error {
	preset := PresetByName(name)
	if preset == nil {
		return fmt.Errorf("unknown preset %q", name)
	}

	current := m.Current()
	preset.Exchange = current.Exchange
	preset.Notifications = current.Notifications
	preset.Monitoring = current.Monitoring
	preset.Services = current.Services

	return m.Apply(preset)
}

// History returns a copy of the update-history audit log
func (m *Manager) History() []ConfigUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]ConfigUpdate, len(m.history))
	copy(history, m.history)
	return history
}

// diffConfigs produces one ConfigUpdate per changed field. Secrets
// (API keys, tokens) are deliberately excluded from the audit log.
func diffConfigs(old, next *SafetyConfig) []ConfigUpdate {
	var changes []ConfigUpdate

	record := func(field string, oldVal, newVal interface{}) {
		if oldVal != newVal {
			changes = append(changes, ConfigUpdate{Field: field, OldValue: oldVal, NewValue: newVal})
		}
	}

	record("preset", old.Preset, next.Preset)

	record("thresholds.max_drawdown_percent", old.Thresholds.MaxDrawdownPercent, next.Thresholds.MaxDrawdownPercent)
	record("thresholds.min_success_rate", old.Thresholds.MinSuccessRate, next.Thresholds.MinSuccessRate)
	record("thresholds.max_consecutive_losses", old.Thresholds.MaxConsecutiveLosses, next.Thresholds.MaxConsecutiveLosses)
	record("thresholds.max_api_latency_ms", old.Thresholds.MaxAPILatencyMs, next.Thresholds.MaxAPILatencyMs)
	record("thresholds.min_pattern_accuracy", old.Thresholds.MinPatternAccuracy, next.Thresholds.MinPatternAccuracy)
	record("thresholds.max_memory_usage_mb", old.Thresholds.MaxMemoryUsageMB, next.Thresholds.MaxMemoryUsageMB)
	record("thresholds.max_concentration_percent", old.Thresholds.MaxConcentrationPercent, next.Thresholds.MaxConcentrationPercent)

	record("risk.max_single_position_size", old.Risk.MaxSinglePositionSize, next.Risk.MaxSinglePositionSize)
	record("risk.max_portfolio_value", old.Risk.MaxPortfolioValue, next.Risk.MaxPortfolioValue)
	record("risk.max_risk_score", old.Risk.MaxRiskScore, next.Risk.MaxRiskScore)
	record("risk.min_position_size", old.Risk.MinPositionSize, next.Risk.MinPositionSize)
	record("risk.emergency_volatility_threshold", old.Risk.EmergencyVolatilityThreshold, next.Risk.EmergencyVolatilityThreshold)
	record("risk.emergency_liquidity_threshold", old.Risk.EmergencyLiquidityThreshold, next.Risk.EmergencyLiquidityThreshold)
	record("risk.emergency_correlation_threshold", old.Risk.EmergencyCorrelationThreshold, next.Risk.EmergencyCorrelationThreshold)

	record("monitoring_interval", old.MonitoringInterval, next.MonitoringInterval)
	record("risk_assessment_interval", old.RiskAssessmentInterval, next.RiskAssessmentInterval)
	record("alert_cleanup_interval", old.AlertCleanupInterval, next.AlertCleanupInterval)
	record("alert_retention_hours", old.AlertRetentionHours, next.AlertRetentionHours)
	record("auto_action_enabled", old.AutoActionEnabled, next.AutoActionEnabled)
	record("coordination_tick", old.CoordinationTick, next.CoordinationTick)
	record("max_concurrent_operations", old.MaxConcurrentOperations, next.MaxConcurrentOperations)
	record("operation_timeout", old.OperationTimeout, next.OperationTimeout)

	return changes
}
