package monitor

import (
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/alerts"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/scheduler"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
)

// MonitoringStats summarizes the monitoring loop's own activity
type MonitoringStats struct {
	CyclesCompleted uint64          `json:"cycles_completed"`
	Coordinator     scheduler.Stats `json:"coordinator"`
}

// SafetyReport is the externally consumed snapshot of the whole safety system
type SafetyReport struct {
	Status           string                      `json:"status"` // "active" or "idle"
	EmergencyActive  bool                        `json:"emergency_active"`
	OverallRiskScore float64                     `json:"overall_risk_score"`
	RiskMetrics      market.PortfolioRiskMetrics `json:"risk_metrics"`
	MarketConditions market.Conditions           `json:"market_conditions"`
	ActiveAlerts     []alerts.Alert              `json:"active_alerts"`
	RecentActions    []alerts.Action             `json:"recent_actions"`
	SystemHealth     services.SystemHealth       `json:"system_health"`
	Recommendations  []string                    `json:"recommendations"`
	MonitoringStats  MonitoringStats             `json:"monitoring_stats"`
	GeneratedAt      time.Time                   `json:"generated_at"`
}
