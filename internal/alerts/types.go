package alerts

import (
	"fmt"
	"time"
)

// Severity grades an alert
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether the severity is one of the known values
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ActionType identifies an auto-action attached to an alert
type ActionType string

const (
	ActionHaltTrading     ActionType = "halt_trading"
	ActionEmergencyClose  ActionType = "emergency_close"
	ActionReducePositions ActionType = "reduce_positions"
	ActionLimitExposure   ActionType = "limit_exposure"
	ActionCircuitBreaker  ActionType = "circuit_breaker"
	ActionNotifyAdmin     ActionType = "notify_admin"
)

// Valid reports whether the action type is one of the known values
func (a ActionType) Valid() bool {
	switch a {
	case ActionHaltTrading, ActionEmergencyClose, ActionReducePositions,
		ActionLimitExposure, ActionCircuitBreaker, ActionNotifyAdmin:
		return true
	}
	return false
}

// ActionResult is the terminal outcome of an executed action
type ActionResult string

const (
	ResultSuccess ActionResult = "success"
	ResultPartial ActionResult = "partial"
	ResultFailed  ActionResult = "failed"
)

// Alert is one safety alert. Immutable once stored except for the
// acknowledged flag and resolution timestamp.
type Alert struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Severity     Severity     `json:"severity"`
	Category     string       `json:"category"`
	Message      string       `json:"message"`
	RiskLevel    float64      `json:"risk_level"`
	Source       string       `json:"source"`
	AutoActions  []ActionType `json:"auto_actions,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	Acknowledged bool         `json:"acknowledged"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
}

// Validate rejects alerts that cannot be stored
func (a *Alert) Validate() error {
	if a.Message == "" {
		return fmt.Errorf("alert message must not be empty")
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("unknown alert severity %q", a.Severity)
	}
	for _, action := range a.AutoActions {
		if !action.Valid() {
			return fmt.Errorf("unknown auto-action type %q", action)
		}
	}
	return nil
}

// Action is one executed (or failed) safety action. Executed at most once;
// Result is terminal.
type Action struct {
	ID          string       `json:"id"`
	Type        ActionType   `json:"type"`
	Description string       `json:"description"`
	Executed    bool         `json:"executed"`
	ExecutedAt  time.Time    `json:"executed_at"`
	Result      ActionResult `json:"result"`
	Details     string       `json:"details,omitempty"`
}
