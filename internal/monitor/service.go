package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/alerts"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/emergency"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/events"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/exchange"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitoring"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/risk"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/scheduler"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/stress"
)

// tightenRestoreAfter is how long a circuit-breaker-tightened monitoring
// interval stays in force before reverting to the configured one.
const tightenRestoreAfter = 5 * time.Minute

// Deps carries the collaborators the orchestrator wires together.
// MarketData, Health and Notifier-backed pieces may be nil when not configured.
type Deps struct {
	Config       *config.Manager
	Store        *market.Store
	Engine       *risk.Engine
	Calculator   *risk.Calculator
	Aggregator   *risk.Aggregator
	StressTester *stress.Tester
	Alerts       *alerts.Manager
	Bus          *events.Bus
	Coordinator  *scheduler.Coordinator
	Emergency    *emergency.Coordinator
	Execution    services.ExecutionService
	Patterns     services.PatternMonitor
	Health       services.HealthChecker
	MarketData   exchange.MarketDataClient
	HealthCheck  *monitoring.HealthChecker
	Logger       *logger.Logger
}

// Service is the safety-monitoring orchestrator: start/stop lifecycle, the
// scheduled operations, the safety report and the emergency path.
type Service struct {
	deps Deps
	core *CoreMonitor
	log  *logger.Logger

	mu         sync.Mutex
	registered bool
	cycleOpID  string
}

// NewService wires the orchestrator. The core monitor feeds its alerts into
// the alert manager.
func NewService(deps Deps) (*Service, error) {
	if deps.Config == nil || deps.Store == nil || deps.Engine == nil || deps.Aggregator == nil ||
		deps.Alerts == nil || deps.Bus == nil || deps.Coordinator == nil ||
		deps.Emergency == nil || deps.Execution == nil {
		return nil, fmt.Errorf("config, store, engine, aggregator, alerts, bus, coordinator, emergency and execution dependencies are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewDiscard()
	}

	s := &Service{
		deps: deps,
		log:  deps.Logger,
	}

	sink := func(alert alerts.Alert) {
		if _, err := deps.Alerts.AddAlert(alert); err != nil {
			s.log.Error("failed to store cycle alert: %v", err)
		}
	}
	s.core = NewCoreMonitor(deps.Config, deps.Store, deps.Execution, deps.Patterns, sink, deps.Logger)

	deps.Alerts.SetMonitoringControl(s)
	return s, nil
}

// StartMonitoring activates the core monitor, registers the scheduled
// operations on first start and starts the coordinator.
func (s *Service) StartMonitoring() error {
	s.core.Start()

	if err := s.registerOperations(); err != nil {
		s.core.Stop()
		return err
	}
	if err := s.deps.Coordinator.Start(); err != nil {
		s.core.Stop()
		return err
	}

	if s.deps.HealthCheck != nil {
		s.deps.HealthCheck.SetMonitoring(true)
	}
	s.log.Info("safety monitoring started")
	return nil
}

// StopMonitoring halts the coordinator and deactivates the core monitor.
// In-flight operations unwind through their contexts.
func (s *Service) StopMonitoring() {
	s.deps.Coordinator.Stop()
	s.core.Stop()
	if s.deps.HealthCheck != nil {
		s.deps.HealthCheck.SetMonitoring(false)
	}
	s.log.Info("safety monitoring stopped")
}

func (s *Service) registerOperations() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered {
		return nil
	}

	cfg := s.deps.Config.Current()

	cycleID, err := s.deps.Coordinator.Register("monitoring-cycle", cfg.MonitoringInterval, s.runMonitoringCycle)
	if err != nil {
		return fmt.Errorf("failed to register monitoring cycle: %w", err)
	}
	s.cycleOpID = cycleID

	if _, err := s.deps.Coordinator.Register("risk-assessment", cfg.RiskAssessmentInterval, s.runRiskAssessment); err != nil {
		return fmt.Errorf("failed to register risk assessment: %w", err)
	}

	if _, err := s.deps.Coordinator.Register("alert-cleanup", cfg.AlertCleanupInterval, func(ctx context.Context) error {
		s.deps.Alerts.CleanupOldAlerts()
		return nil
	}); err != nil {
		return fmt.Errorf("failed to register alert cleanup: %w", err)
	}

	s.registered = true
	return nil
}

// runMonitoringCycle refreshes market data, runs the threshold cycle and
// reacts to emergency market conditions.
func (s *Service) runMonitoringCycle(ctx context.Context) error {
	s.refreshMarketData(ctx)

	score, err := s.core.PerformMonitoringCycle(ctx)
	if err != nil {
		return err
	}
	if s.deps.HealthCheck != nil {
		s.deps.HealthCheck.RecordCycle(score)
	}

	if s.deps.Store.IsEmergencyConditions() && !s.deps.Bus.EmergencyActive() {
		s.log.Alert("emergency market conditions detected, triggering emergency response")
		s.TriggerEmergencyResponse(ctx, "emergency market conditions")
	}
	return nil
}

// runRiskAssessment runs the comprehensive assessment and escalates an
// emergency verdict.
func (s *Service) runRiskAssessment(ctx context.Context) error {
	if s.deps.Aggregator == nil {
		return nil
	}

	assessment := s.deps.Aggregator.Assess(ctx)
	if assessment.Status == risk.StatusEmergency && !s.deps.Bus.EmergencyActive() {
		s.TriggerEmergencyResponse(ctx,
			fmt.Sprintf("comprehensive risk score %.1f", assessment.OverallScore))
	}
	return nil
}

// refreshMarketData folds exchange tickers for the open symbols into the
// market conditions. Failures degrade to the previous conditions.
func (s *Service) refreshMarketData(ctx context.Context) {
	if s.deps.MarketData == nil {
		return
	}

	positions := s.deps.Store.Positions()
	if len(positions) == 0 {
		return
	}

	var spreadSum, changeSum, volumeSum, rangeSum float64
	sampled := 0
	for _, p := range positions {
		ticker, err := s.deps.MarketData.GetTicker(ctx, p.Symbol)
		if err != nil {
			monitoring.RecordCollaboratorError("market-data")
			s.log.Warning("ticker fetch failed for %s: %v", p.Symbol, err)
			continue
		}
		spreadSum += ticker.SpreadPercent()
		changeSum += ticker.PriceChange24hPercent
		volumeSum += ticker.Turnover24h
		if ticker.LastPrice > 0 {
			rangeSum += (ticker.HighPrice24h - ticker.LowPrice24h) / ticker.LastPrice * 100
		}
		sampled++
	}
	if sampled == 0 {
		return
	}

	spread := spreadSum / float64(sampled)
	change := changeSum / float64(sampled)
	// Daily range doubles as a crude volatility estimate on the 0-100 scale
	volatility := clampIndex(rangeSum / float64(sampled) * 2)

	update := market.ConditionsUpdate{
		BidAskSpread:     &spread,
		PriceChange24h:   &change,
		TradingVolume24h: &volumeSum,
		VolatilityIndex:  &volatility,
	}
	if err := s.deps.Store.UpdateConditions(update); err != nil {
		s.log.Warning("market conditions update rejected: %v", err)
	}
}

// GetSafetyReport composes the externally consumed snapshot
func (s *Service) GetSafetyReport(ctx context.Context) *SafetyReport {
	status := "idle"
	if s.core.Active() {
		status = "active"
	}

	health := services.DefaultSystemHealth()
	if s.deps.Health != nil {
		if h, err := s.deps.Health.PerformSystemHealthCheck(ctx); err == nil {
			health = h
		} else {
			monitoring.RecordCollaboratorError("health")
		}
	}

	var recommendations []string
	if s.deps.Aggregator != nil {
		recommendations = s.deps.Aggregator.Assess(ctx).Recommendations
	}

	return &SafetyReport{
		Status:           status,
		EmergencyActive:  s.deps.Bus.EmergencyActive(),
		OverallRiskScore: s.core.LastScore(),
		RiskMetrics:      s.deps.Store.PortfolioMetrics(),
		MarketConditions: s.deps.Store.Conditions(),
		ActiveAlerts:     s.deps.Alerts.ActiveAlerts(),
		RecentActions:    s.deps.Alerts.RecentActions(),
		SystemHealth:     health,
		Recommendations:  recommendations,
		MonitoringStats: MonitoringStats{
			CyclesCompleted: s.core.Cycles(),
			Coordinator:     s.deps.Coordinator.Stats(),
		},
		GeneratedAt: time.Now(),
	}
}

// PerformRiskAssessment runs the comprehensive assessment on demand
func (s *Service) PerformRiskAssessment(ctx context.Context) *risk.ComprehensiveAssessment {
	return s.deps.Aggregator.Assess(ctx)
}

// AssessTradeRisk scores one proposed trade
func (s *Service) AssessTradeRisk(symbol string, side risk.TradeSide, quantity, price float64) *risk.TradeAssessment {
	return s.deps.Engine.AssessTradeRisk(symbol, side, quantity, price)
}

// AcknowledgeAlert marks an alert acknowledged
func (s *Service) AcknowledgeAlert(id string) (bool, error) {
	return s.deps.Alerts.AcknowledgeAlert(id)
}

// UpdateConfiguration swaps in a new configuration and propagates the pieces
// other components cache.
func (s *Service) UpdateConfiguration(next *config.SafetyConfig) error {
	if err := s.deps.Config.Apply(next); err != nil {
		return err
	}
	s.propagateConfig()
	return nil
}

// ApplyPreset swaps in a named preset configuration
func (s *Service) ApplyPreset(name string) error {
	if err := s.deps.Config.ApplyPreset(name); err != nil {
		return err
	}
	s.propagateConfig()
	return nil
}

func (s *Service) propagateConfig() {
	cfg := s.deps.Config.Current()
	s.deps.Store.SetRiskLimits(cfg.Risk)

	s.mu.Lock()
	cycleID := s.cycleOpID
	s.mu.Unlock()
	if cycleID != "" {
		if err := s.deps.Coordinator.SetInterval(cycleID, cfg.MonitoringInterval); err != nil {
			s.log.Warning("failed to update monitoring interval: %v", err)
		}
	}

	s.deps.Bus.Publish(events.Event{
		Type:     events.EventConfigUpdated,
		Severity: "low",
		Source:   "orchestrator",
		Message:  fmt.Sprintf("configuration updated to version %d (%s)", s.deps.Config.Version(), cfg.Preset),
	})
	s.log.Info("configuration updated to version %d", s.deps.Config.Version())
}

// TightenMonitoring implements the circuit-breaker action's hook: the
// monitoring cycle runs at the tightened interval until the restore window
// elapses or a config update overrides it.
func (s *Service) TightenMonitoring(interval time.Duration) {
	s.mu.Lock()
	cycleID := s.cycleOpID
	s.mu.Unlock()
	if cycleID == "" {
		return
	}

	if err := s.deps.Coordinator.SetInterval(cycleID, interval); err != nil {
		s.log.Warning("failed to tighten monitoring interval: %v", err)
		return
	}
	s.log.Info("monitoring interval tightened to %v for %v", interval, tightenRestoreAfter)

	time.AfterFunc(tightenRestoreAfter, func() {
		restored := s.deps.Config.Current().MonitoringInterval
		if err := s.deps.Coordinator.SetInterval(cycleID, restored); err != nil {
			s.log.Warning("failed to restore monitoring interval: %v", err)
			return
		}
		s.log.Info("monitoring interval restored to %v", restored)
	})
}

// TriggerEmergencyResponse raises the emergency flag, fans the stop signal
// out to every registered service and runs the emergency action set.
func (s *Service) TriggerEmergencyResponse(ctx context.Context, reason string) []alerts.Action {
	s.deps.Bus.EnterEmergency("orchestrator", reason)
	monitoring.SetEmergencyActive(true)
	if s.deps.HealthCheck != nil {
		s.deps.HealthCheck.SetEmergency(true)
	}

	result := s.deps.Emergency.Trigger(ctx, emergency.StopEvent{
		Type:        "emergency_response",
		TriggeredBy: "orchestrator",
		Severity:    "critical",
		Reason:      reason,
	})

	actions := s.deps.Alerts.ExecuteActionSet(ctx, "emergency response", []alerts.ActionType{
		alerts.ActionHaltTrading,
		alerts.ActionEmergencyClose,
		alerts.ActionNotifyAdmin,
	})

	if _, err := s.deps.Alerts.AddAlert(alerts.Alert{
		Type:      "emergency_response",
		Severity:  alerts.SeverityCritical,
		Category:  "emergency",
		Message:   fmt.Sprintf("emergency response triggered: %s (coordinated %d services, %d errors)", reason, len(result.CoordinatedServices), len(result.Errors)),
		RiskLevel: 100,
		Source:    "orchestrator",
	}); err != nil {
		s.log.Error("failed to record emergency alert: %v", err)
	}

	return actions
}

// ClearEmergency lowers the emergency flag after operator review
func (s *Service) ClearEmergency() {
	s.deps.Bus.ClearEmergency("orchestrator")
	monitoring.SetEmergencyActive(false)
	if s.deps.HealthCheck != nil {
		s.deps.HealthCheck.SetEmergency(false)
	}
}

func clampIndex(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
