package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Monitoring cycle metrics
	monitoringCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "safety_monitor_cycles_total",
			Help: "Total number of completed monitoring cycles",
		},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "safety_monitor_cycle_duration_seconds",
			Help:    "Distribution of monitoring cycle durations",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Risk metrics
	overallRiskScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "safety_monitor_overall_risk_score",
			Help: "Current overall risk score (0-100)",
		},
	)

	portfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "safety_monitor_portfolio_value",
			Help: "Current total portfolio value",
		},
	)

	// Alert metrics
	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_monitor_alerts_total",
			Help: "Total number of alerts raised",
		},
		[]string{"severity", "category"},
	)

	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_monitor_actions_total",
			Help: "Total number of auto-actions executed",
		},
		[]string{"type", "result"},
	)

	// Emergency metrics
	emergencyStopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "safety_monitor_emergency_stops_total",
			Help: "Total number of coordinated emergency stops",
		},
	)

	emergencyActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "safety_monitor_emergency_active",
			Help: "Whether the emergency flag is currently raised (0 or 1)",
		},
	)

	// Error metrics
	collaboratorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_monitor_collaborator_errors_total",
			Help: "Total number of failed collaborator calls",
		},
		[]string{"collaborator"},
	)

	operationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_monitor_operation_errors_total",
			Help: "Total number of failed scheduled operations",
		},
		[]string{"operation"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(monitoringCyclesTotal)
	prometheus.MustRegister(cycleDuration)
	prometheus.MustRegister(overallRiskScore)
	prometheus.MustRegister(portfolioValue)
	prometheus.MustRegister(alertsTotal)
	prometheus.MustRegister(actionsTotal)
	prometheus.MustRegister(emergencyStopsTotal)
	prometheus.MustRegister(emergencyActive)
	prometheus.MustRegister(collaboratorErrorsTotal)
	prometheus.MustRegister(operationErrorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordCycle records a completed monitoring cycle and its duration
func RecordCycle(durationSeconds float64) {
	monitoringCyclesTotal.Inc()
	cycleDuration.Observe(durationSeconds)
}

// UpdateRiskScore updates the overall risk score gauge
func UpdateRiskScore(score float64) {
	overallRiskScore.Set(score)
}

// UpdatePortfolioValue updates the portfolio value gauge
func UpdatePortfolioValue(value float64) {
	portfolioValue.Set(value)
}

// RecordAlert records a raised alert
func RecordAlert(severity, category string) {
	alertsTotal.WithLabelValues(severity, category).Inc()
}

// RecordAction records an executed auto-action and its result
func RecordAction(actionType, result string) {
	actionsTotal.WithLabelValues(actionType, result).Inc()
}

// RecordEmergencyStop records a coordinated emergency stop
func RecordEmergencyStop() {
	emergencyStopsTotal.Inc()
}

// SetEmergencyActive updates the emergency flag gauge
func SetEmergencyActive(active bool) {
	if active {
		emergencyActive.Set(1)
	} else {
		emergencyActive.Set(0)
	}
}

// RecordCollaboratorError records a failed collaborator call
func RecordCollaboratorError(collaborator string) {
	collaboratorErrorsTotal.WithLabelValues(collaborator).Inc()
}

// RecordOperationError records a failed scheduled operation
func RecordOperationError(operation string) {
	operationErrorsTotal.WithLabelValues(operation).Inc()
}
