// Package alerts owns the alert lifecycle and the execution of the
// auto-actions an alert can carry.
package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/events"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitoring"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/notifications"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/resilience"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
)

// recentActionsCap bounds the executed-actions log exposed in reports
const recentActionsCap = 100

// MonitoringControl lets the circuit-breaker action tighten the monitoring
// loop without the alert manager depending on the monitor itself.
type MonitoringControl interface {
	TightenMonitoring(interval time.Duration)
}

// Manager owns the alert list and executes auto-actions. Alert creation is
// synchronous; action execution is fire-and-forget relative to it.
type Manager struct {
	mu            sync.RWMutex
	alerts        map[string]*Alert
	recentActions []Action

	cfg           *config.Manager
	execution     services.ExecutionService
	notifier      notifications.Notifier
	bus           *events.Bus
	control       MonitoringControl
	notifyLimiter *resilience.Limiter
	log           *logger.Logger
}

// NewManager creates an alert manager. notifier and control may be nil when
// the corresponding channel is not configured.
func NewManager(cfg *config.Manager, execution services.ExecutionService, notifier notifications.Notifier, bus *events.Bus, log *logger.Logger) *Manager {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Manager{
		alerts:        make(map[string]*Alert),
		recentActions: make([]Action, 0, recentActionsCap),
		cfg:           cfg,
		execution:     execution,
		notifier:      notifier,
		bus:           bus,
		notifyLimiter: resilience.NewLimiter("admin-notify", 10, 1),
		log:           log,
	}
}

// SetMonitoringControl wires the circuit-breaker action's monitoring hook.
// Set once during startup, before monitoring begins.
func (m *Manager) SetMonitoringControl(control MonitoringControl) {
	m.mu.Lock()
	m.control = control
	m.mu.Unlock()
}

// AddAlert validates and stores an alert, then kicks off its auto-actions in
// the background when auto-actions are globally enabled. The stored alert is
// returned immediately; callers never wait on action execution.
func (m *Manager) AddAlert(alert Alert) (*Alert, error) {
	if err := alert.Validate(); err != nil {
		return nil, fmt.Errorf("alert rejected: %w", err)
	}

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	m.mu.Lock()
	stored := alert
	m.alerts[alert.ID] = &stored
	m.mu.Unlock()

	monitoring.RecordAlert(string(alert.Severity), alert.Category)
	m.log.Alert("[%s/%s] %s", alert.Severity, alert.Category, alert.Message)

	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type:     events.EventAlertRaised,
			Severity: string(alert.Severity),
			Source:   alert.Source,
			Message:  alert.Message,
			Context:  map[string]interface{}{"alert_id": alert.ID, "category": alert.Category},
		})
	}

	if len(alert.AutoActions) > 0 && m.cfg.Current().AutoActionEnabled {
		go m.runActions(alert.ID, alert.AutoActions)
	}

	result := stored
	return &result, nil
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledging twice is a
// no-op; the returned bool reports whether this call changed anything.
func (m *Manager) AcknowledgeAlert(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alerts[id]
	if !ok {
		return false, fmt.Errorf("alert %s not found", id)
	}
	if alert.Acknowledged {
		return false, nil
	}

	alert.Acknowledged = true
	now := time.Now()
	alert.ResolvedAt = &now
	return true, nil
}

// ActiveAlerts returns copies of all unacknowledged alerts, newest first
func (m *Manager) ActiveAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Alert
	for _, a := range m.alerts {
		if !a.Acknowledged {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// AllAlerts returns copies of every stored alert, newest first
func (m *Manager) AllAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// CleanupOldAlerts removes acknowledged alerts older than the retention
// window. Unacknowledged alerts never expire, someone has to look at them.
func (m *Manager) CleanupOldAlerts() int {
	retention := time.Duration(m.cfg.Current().AlertRetentionHours) * time.Hour
	cutoff := time.Now().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, a := range m.alerts {
		if a.Acknowledged && a.Timestamp.Before(cutoff) {
			delete(m.alerts, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("alert cleanup removed %d acknowledged alerts", removed)
	}
	return removed
}

// RecentActions returns copies of recently executed actions, newest first
func (m *Manager) RecentActions() []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Action, len(m.recentActions))
	copy(out, m.recentActions)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (m *Manager) recordAction(action Action) {
	m.mu.Lock()
	if len(m.recentActions) >= recentActionsCap {
		copy(m.recentActions, m.recentActions[1:])
		m.recentActions = m.recentActions[:recentActionsCap-1]
	}
	m.recentActions = append(m.recentActions, action)
	m.mu.Unlock()

	monitoring.RecordAction(string(action.Type), string(action.Result))
	if m.bus != nil {
		m.bus.Publish(events.Event{
			Type:     events.EventActionExecuted,
			Severity: "high",
			Source:   "alert-manager",
			Message:  fmt.Sprintf("action %s finished with result %s", action.Type, action.Result),
			Context:  map[string]interface{}{"action_id": action.ID, "details": action.Details},
		})
	}
}
