package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// actionTimeout bounds each individual action's execution
const actionTimeout = 30 * time.Second

// tightenedInterval is the monitoring interval the circuit-breaker action
// switches to while the breaker is engaged.
const tightenedInterval = 10 * time.Second

// runActions executes an alert's auto-actions in the background
func (m *Manager) runActions(alertID string, types []ActionType) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("action execution for alert %s panicked: %v", alertID, r)
		}
	}()

	actions := m.ExecuteActionSet(context.Background(), fmt.Sprintf("alert %s", alertID), types)
	for _, a := range actions {
		m.log.Info("auto-action %s for alert %s: %s (%s)", a.Type, alertID, a.Result, a.Details)
	}
}

// ExecuteActionSet runs each action type in order under a per-action timeout
// and returns the executed actions. A failed action never aborts its
// siblings; its failure is captured on the action record.
func (m *Manager) ExecuteActionSet(ctx context.Context, source string, types []ActionType) []Action {
	actions := make([]Action, 0, len(types))
	for _, t := range types {
		actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
		action := m.executeAction(actionCtx, t)
		cancel()

		m.recordAction(action)
		actions = append(actions, action)
	}

	m.log.Info("executed %d actions for %s", len(actions), source)
	return actions
}

func (m *Manager) executeAction(ctx context.Context, t ActionType) Action {
	action := Action{
		ID:         uuid.New().String(),
		Type:       t,
		Executed:   true,
		ExecutedAt: time.Now(),
	}

	switch t {
	case ActionHaltTrading:
		action.Description = "stop the execution service"
		if err := m.execution.StopExecution(ctx); err != nil {
			action.Result = ResultFailed
			action.Details = err.Error()
		} else {
			action.Result = ResultSuccess
			action.Details = "execution service stopped"
		}

	case ActionEmergencyClose:
		action.Description = "close all open positions"
		m.executeEmergencyClose(ctx, &action)

	case ActionReducePositions:
		action.Description = "halve the largest positions"
		m.executeReducePositions(ctx, &action)

	case ActionLimitExposure:
		action.Description = "scale positions back under the exposure limit"
		m.executeLimitExposure(ctx, &action)

	case ActionCircuitBreaker:
		action.Description = "pause trading and tighten monitoring"
		m.executeCircuitBreaker(ctx, &action)

	case ActionNotifyAdmin:
		action.Description = "notify the administrator"
		// Best-effort: a failed or rate-limited notification never blocks
		// the action pipeline.
		if !m.notifyLimiter.Allow() {
			action.Result = ResultPartial
			action.Details = "notification rate limited"
			break
		}
		if err := m.notifier.SendAlert("critical", "safety auto-action triggered, review the monitor"); err != nil {
			action.Result = ResultPartial
			action.Details = fmt.Sprintf("notification failed: %v", err)
		} else {
			action.Result = ResultSuccess
			action.Details = "administrator notified"
		}

	default:
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("unknown action type %q", t)
	}

	return action
}

// executeEmergencyClose grades its result by comparing the closed count to
// the number of positions that were open.
func (m *Manager) executeEmergencyClose(ctx context.Context, action *Action) {
	positions, err := m.execution.GetActivePositions(ctx)
	if err != nil {
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("could not list positions: %v", err)
		return
	}

	closed, err := m.execution.EmergencyCloseAll(ctx)
	switch {
	case err != nil && closed == 0:
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("emergency close failed: %v", err)
	case closed >= len(positions):
		action.Result = ResultSuccess
		action.Details = fmt.Sprintf("closed all %d positions", closed)
	case closed > 0:
		action.Result = ResultPartial
		action.Details = fmt.Sprintf("closed %d of %d positions", closed, len(positions))
	default:
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("no positions closed out of %d", len(positions))
	}
}

// executeReducePositions sorts positions by size descending and halves the
// top half by count.
func (m *Manager) executeReducePositions(ctx context.Context, action *Action) {
	positions, err := m.execution.GetActivePositions(ctx)
	if err != nil {
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("could not list positions: %v", err)
		return
	}
	if len(positions) == 0 {
		action.Result = ResultSuccess
		action.Details = "no open positions to reduce"
		return
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].Size > positions[j].Size })
	target := (len(positions) + 1) / 2

	reduced, failed := 0, 0
	for _, p := range positions[:target] {
		if err := m.execution.UpdatePositionSize(ctx, p.ID, p.Size/2); err != nil {
			failed++
			m.log.Warning("failed to reduce position %s: %v", p.Symbol, err)
			continue
		}
		reduced++
	}

	switch {
	case failed == 0:
		action.Result = ResultSuccess
		action.Details = fmt.Sprintf("halved %d of %d positions", reduced, len(positions))
	case reduced > 0:
		action.Result = ResultPartial
		action.Details = fmt.Sprintf("halved %d positions, %d failed", reduced, failed)
	default:
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("all %d reductions failed", failed)
	}
}

// executeLimitExposure scales every position by maxAllowed/current, but only
// when current exposure is actually over the limit.
func (m *Manager) executeLimitExposure(ctx context.Context, action *Action) {
	positions, err := m.execution.GetActivePositions(ctx)
	if err != nil {
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("could not list positions: %v", err)
		return
	}

	var current float64
	for _, p := range positions {
		current += p.Size
	}

	maxAllowed := m.cfg.Current().Risk.MaxPortfolioValue
	if current <= maxAllowed {
		action.Result = ResultSuccess
		action.Details = fmt.Sprintf("exposure %.2f already within limit %.2f", current, maxAllowed)
		return
	}

	scale := maxAllowed / current
	scaled, failed := 0, 0
	for _, p := range positions {
		if err := m.execution.UpdatePositionSize(ctx, p.ID, p.Size*scale); err != nil {
			failed++
			m.log.Warning("failed to scale position %s: %v", p.Symbol, err)
			continue
		}
		scaled++
	}

	switch {
	case failed == 0:
		action.Result = ResultSuccess
		action.Details = fmt.Sprintf("scaled %d positions by %.2f", scaled, scale)
	case scaled > 0:
		action.Result = ResultPartial
		action.Details = fmt.Sprintf("scaled %d positions, %d failed", scaled, failed)
	default:
		action.Result = ResultFailed
		action.Details = "exposure scaling failed for every position"
	}
}

// executeCircuitBreaker pauses trading and temporarily tightens the
// monitoring interval so recovery is observed closely.
func (m *Manager) executeCircuitBreaker(ctx context.Context, action *Action) {
	err := m.execution.StopExecution(ctx)

	m.mu.RLock()
	control := m.control
	m.mu.RUnlock()
	if control != nil {
		control.TightenMonitoring(tightenedInterval)
	}

	switch {
	case err != nil && control == nil:
		action.Result = ResultFailed
		action.Details = fmt.Sprintf("pause failed and no monitoring control wired: %v", err)
	case err != nil:
		action.Result = ResultPartial
		action.Details = fmt.Sprintf("monitoring tightened to %s but pause failed: %v", tightenedInterval, err)
	case control == nil:
		action.Result = ResultPartial
		action.Details = "trading paused, no monitoring control wired"
	default:
		action.Result = ResultSuccess
		action.Details = fmt.Sprintf("trading paused, monitoring tightened to %s", tightenedInterval)
	}
}
