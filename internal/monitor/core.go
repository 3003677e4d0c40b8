// Package monitor is the heartbeat of the safety system: the per-cycle
// threshold evaluation and the orchestrator that wires every component into
// one start/stop lifecycle.
package monitor

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/alerts"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitoring"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/resilience"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
)

// Overall risk score weights. They sum to 100.
const (
	weightDrawdown          = 25.0
	weightSuccessRate       = 20.0
	weightConsecutiveLosses = 15.0
	weightConcentration     = 15.0
	weightAPILatency        = 10.0
	weightPatternAccuracy   = 10.0
	weightMemoryUsage       = 5.0
)

// cycleMetrics is the refreshed input of one monitoring cycle
type cycleMetrics struct {
	performance     services.PerformanceMetrics
	patternReport   services.PatternReport
	concentration   float64
	memoryUsageMB   float64
	performanceLive bool // false when the fallback was used
	patternLive     bool
}

// AlertSink receives the alerts a monitoring cycle raises
type AlertSink func(alert alerts.Alert)

// CoreMonitor evaluates the safety thresholds each cycle. It is a two-state
// machine: cycles only run while active.
type CoreMonitor struct {
	mu        sync.Mutex
	active    bool
	hasData   bool
	lastKnown cycleMetrics
	cycles    uint64
	lastScore float64

	cfg       *config.Manager
	store     *market.Store
	execution services.ExecutionService
	patterns  services.PatternMonitor
	breakers  *resilience.BreakerSet
	sink      AlertSink
	log       *logger.Logger
}

// NewCoreMonitor creates an idle monitor. The sink receives every alert a
// cycle raises; it must not block.
func NewCoreMonitor(cfg *config.Manager, store *market.Store, execution services.ExecutionService, patterns services.PatternMonitor, sink AlertSink, log *logger.Logger) *CoreMonitor {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &CoreMonitor{
		cfg:       cfg,
		store:     store,
		execution: execution,
		patterns:  patterns,
		breakers:  resilience.NewBreakerSet(resilience.BreakerConfig{}),
		sink:      sink,
		log:       log,
	}
}

// Start moves the monitor to active. Starting an active monitor is a no-op.
func (m *CoreMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		m.active = true
		m.log.Info("core monitoring activated")
	}
}

// Stop moves the monitor back to idle
func (m *CoreMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.active = false
		m.log.Info("core monitoring deactivated")
	}
}

// Active reports whether cycles may run
func (m *CoreMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastScore returns the most recent overall risk score
func (m *CoreMonitor) LastScore() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastScore
}

// Cycles returns the number of completed monitoring cycles
func (m *CoreMonitor) Cycles() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles
}

// PerformMonitoringCycle refreshes metrics from the collaborators, evaluates
// the configured thresholds and returns the overall risk score. A failed
// collaborator call degrades to the last known metrics, never to an aborted
// cycle. The score is 0 only in the untouched no-data state.
func (m *CoreMonitor) PerformMonitoringCycle(ctx context.Context) (float64, error) {
	if !m.Active() {
		return 0, fmt.Errorf("monitoring cycle requested while idle")
	}

	start := time.Now()
	metrics := m.refreshMetrics(ctx)
	thresholds := m.cfg.Current().Thresholds

	m.evaluateThresholds(metrics, thresholds)
	score := m.overallScore(metrics, thresholds)

	m.mu.Lock()
	m.cycles++
	m.lastScore = score
	m.mu.Unlock()

	monitoring.RecordCycle(time.Since(start).Seconds())
	monitoring.UpdateRiskScore(score)
	m.log.Cycle("monitoring cycle %d: score=%.1f drawdown=%.1f%% successRate=%.1f%% live=%t",
		m.Cycles(), score, metrics.performance.MaxDrawdown, metrics.performance.SuccessRate, metrics.performanceLive)

	return score, nil
}

// refreshMetrics pulls fresh numbers from the collaborators behind circuit
// breakers, falling back to the last known values on failure.
func (m *CoreMonitor) refreshMetrics(ctx context.Context) cycleMetrics {
	m.mu.Lock()
	metrics := m.lastKnown
	hadData := m.hasData
	m.mu.Unlock()

	metrics.performanceLive = false
	metrics.patternLive = false

	err := m.breakers.GetOrCreate("execution").Call(func() error {
		perf, err := m.execution.GetPerformanceMetrics(ctx)
		if err != nil {
			return err
		}
		metrics.performance = perf
		metrics.performanceLive = true
		return nil
	})
	if err != nil {
		monitoring.RecordCollaboratorError("execution")
		m.log.Warning("performance fetch failed, using %s: %v",
			fallbackLabel(hadData), err)
		if !hadData {
			metrics.performance = services.DefaultPerformanceMetrics()
		}
	}

	err = m.breakers.GetOrCreate("patterns").Call(func() error {
		report, err := m.patterns.GetMonitoringReport(ctx)
		if err != nil {
			return err
		}
		metrics.patternReport = report
		metrics.patternLive = true
		return nil
	})
	if err != nil {
		monitoring.RecordCollaboratorError("patterns")
		m.log.Warning("pattern fetch failed, using %s: %v", fallbackLabel(hadData), err)
		if !hadData {
			metrics.patternReport = services.DefaultPatternReport()
		}
	}

	portfolio := m.store.PortfolioMetrics()
	metrics.concentration = portfolio.ConcentrationRisk
	monitoring.UpdatePortfolioValue(portfolio.TotalValue)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.memoryUsageMB = float64(mem.Alloc) / (1024 * 1024)

	m.mu.Lock()
	m.lastKnown = metrics
	if metrics.performanceLive || metrics.patternLive || portfolio.PositionCount > 0 {
		m.hasData = true
	}
	m.mu.Unlock()

	return metrics
}

// evaluateThresholds raises one alert per crossed threshold
func (m *CoreMonitor) evaluateThresholds(metrics cycleMetrics, thresholds config.SafetyThresholds) {
	perf := metrics.performance

	if perf.MaxDrawdown > thresholds.MaxDrawdownPercent {
		m.raise(alerts.Alert{
			Type:        "drawdown_exceeded",
			Severity:    alerts.SeverityCritical,
			Category:    "performance",
			Message:     fmt.Sprintf("drawdown %.1f%% exceeds maximum %.1f%%", perf.MaxDrawdown, thresholds.MaxDrawdownPercent),
			RiskLevel:   math.Min(perf.MaxDrawdown/thresholds.MaxDrawdownPercent*100, 100),
			Source:      "core-monitor",
			AutoActions: []alerts.ActionType{alerts.ActionReducePositions, alerts.ActionNotifyAdmin},
		})
	}

	if perf.SuccessRate < thresholds.MinSuccessRate {
		m.raise(alerts.Alert{
			Type:        "success_rate_low",
			Severity:    alerts.SeverityHigh,
			Category:    "performance",
			Message:     fmt.Sprintf("success rate %.1f%% below minimum %.1f%%", perf.SuccessRate, thresholds.MinSuccessRate),
			RiskLevel:   math.Min((thresholds.MinSuccessRate-perf.SuccessRate)/thresholds.MinSuccessRate*100, 100),
			Source:      "core-monitor",
			AutoActions: []alerts.ActionType{alerts.ActionNotifyAdmin},
		})
	}

	if perf.ConsecutiveLosses > thresholds.MaxConsecutiveLosses {
		m.raise(alerts.Alert{
			Type:        "consecutive_losses",
			Severity:    alerts.SeverityHigh,
			Category:    "performance",
			Message:     fmt.Sprintf("%d consecutive losses exceeds maximum %d", perf.ConsecutiveLosses, thresholds.MaxConsecutiveLosses),
			RiskLevel:   math.Min(float64(perf.ConsecutiveLosses)/float64(thresholds.MaxConsecutiveLosses)*100, 100),
			Source:      "core-monitor",
			AutoActions: []alerts.ActionType{alerts.ActionNotifyAdmin},
		})
	}

	if perf.APILatencyMs > thresholds.MaxAPILatencyMs {
		m.raise(alerts.Alert{
			Type:      "api_latency_high",
			Severity:  alerts.SeverityMedium,
			Category:  "infrastructure",
			Message:   fmt.Sprintf("API latency %.0fms exceeds maximum %.0fms", perf.APILatencyMs, thresholds.MaxAPILatencyMs),
			RiskLevel: math.Min(perf.APILatencyMs/thresholds.MaxAPILatencyMs*100, 100),
			Source:    "core-monitor",
		})
	}
}

// overallScore folds the normalized metrics into the weighted composite
func (m *CoreMonitor) overallScore(metrics cycleMetrics, thresholds config.SafetyThresholds) float64 {
	m.mu.Lock()
	hasData := m.hasData
	m.mu.Unlock()
	if !hasData {
		return 0
	}

	perf := metrics.performance

	score := ratio(perf.MaxDrawdown, thresholds.MaxDrawdownPercent)*weightDrawdown +
		shortfall(perf.SuccessRate, thresholds.MinSuccessRate)*weightSuccessRate +
		ratio(float64(perf.ConsecutiveLosses), float64(thresholds.MaxConsecutiveLosses))*weightConsecutiveLosses +
		ratio(metrics.concentration, thresholds.MaxConcentrationPercent)*weightConcentration +
		ratio(perf.APILatencyMs, thresholds.MaxAPILatencyMs)*weightAPILatency +
		shortfall(metrics.patternReport.Stats.AverageConfidence, thresholds.MinPatternAccuracy)*weightPatternAccuracy +
		ratio(metrics.memoryUsageMB, thresholds.MaxMemoryUsageMB)*weightMemoryUsage

	return math.Min(score, 100)
}

func (m *CoreMonitor) raise(alert alerts.Alert) {
	if m.sink != nil {
		m.sink(alert)
	}
}

// ratio normalizes value against its ceiling into [0,1]
func ratio(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Max(0, math.Min(value/limit, 1))
}

// shortfall normalizes how far value has fallen below its floor into [0,1]
func shortfall(value, minimum float64) float64 {
	if minimum <= 0 {
		return 0
	}
	return math.Max(0, math.Min((minimum-value)/minimum, 1))
}

func fallbackLabel(hadData bool) string {
	if hadData {
		return "last known metrics"
	}
	return "conservative defaults"
}
