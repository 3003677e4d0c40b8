package alerts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
)

type fakeExecution struct {
	mu        sync.Mutex
	positions []services.Position
	listErr   error
	stopErr   error
	closed    int
	closeErr  error
	updateErr error
	updated   map[string]float64
	stopped   bool
}

func (f *fakeExecution) GetActivePositions(ctx context.Context) ([]services.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]services.Position, len(f.positions))
	copy(out, f.positions)
	return out, nil
}

func (f *fakeExecution) GetPerformanceMetrics(ctx context.Context) (services.PerformanceMetrics, error) {
	return services.PerformanceMetrics{}, nil
}

func (f *fakeExecution) StopExecution(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = true
	return nil
}

func (f *fakeExecution) EmergencyCloseAll(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeErr
}

func (f *fakeExecution) UpdatePositionSize(ctx context.Context, positionID string, newSize float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]float64)
	}
	f.updated[positionID] = newSize
	return nil
}

type fakeControl struct {
	mu        sync.Mutex
	tightened time.Duration
}

func (f *fakeControl) TightenMonitoring(interval time.Duration) {
	f.mu.Lock()
	f.tightened = interval
	f.mu.Unlock()
}

func newTestManager(t *testing.T, execution *fakeExecution) *Manager {
	t.Helper()
	cfg := config.BalancedConfig()
	cfg.AutoActionEnabled = false
	manager, err := config.NewManager(cfg)
	require.NoError(t, err)
	if execution == nil {
		execution = &fakeExecution{}
	}
	return NewManager(manager, execution, nil, nil, nil)
}

// TestAddAlert_AssignsIdentityAndStores tests the synchronous creation path
func TestAddAlert_AssignsIdentityAndStores(t *testing.T) {
	manager := newTestManager(t, nil)

	stored, err := manager.AddAlert(Alert{
		Type:     "drawdown_exceeded",
		Severity: SeverityCritical,
		Category: "performance",
		Message:  "drawdown 18% exceeds maximum 15%",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.Timestamp.IsZero())
	assert.False(t, stored.Acknowledged)

	active := manager.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, stored.ID, active[0].ID)
}

// TestAddAlert_RejectsInvalidAlerts tests validation on creation
func TestAddAlert_RejectsInvalidAlerts(t *testing.T) {
	manager := newTestManager(t, nil)

	_, err := manager.AddAlert(Alert{Severity: SeverityHigh})
	assert.Error(t, err)

	_, err = manager.AddAlert(Alert{Severity: Severity("catastrophic"), Message: "boom"})
	assert.Error(t, err)

	_, err = manager.AddAlert(Alert{
		Severity:    SeverityHigh,
		Message:     "bad action",
		AutoActions: []ActionType{ActionType("self_destruct")},
	})
	assert.Error(t, err)

	assert.Empty(t, manager.AllAlerts())
}

// TestAcknowledgeAlert_IsIdempotent tests the acknowledgement state machine
func TestAcknowledgeAlert_IsIdempotent(t *testing.T) {
	manager := newTestManager(t, nil)
	stored, err := manager.AddAlert(Alert{Severity: SeverityLow, Message: "note"})
	require.NoError(t, err)

	changed, err := manager.AcknowledgeAlert(stored.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = manager.AcknowledgeAlert(stored.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = manager.AcknowledgeAlert("no-such-alert")
	assert.Error(t, err)

	assert.Empty(t, manager.ActiveAlerts())
	all := manager.AllAlerts()
	require.Len(t, all, 1)
	assert.True(t, all[0].Acknowledged)
	assert.NotNil(t, all[0].ResolvedAt)
}

// TestActiveAlerts_NewestFirst tests the ordering contract
func TestActiveAlerts_NewestFirst(t *testing.T) {
	manager := newTestManager(t, nil)

	older, err := manager.AddAlert(Alert{
		Severity: SeverityLow, Message: "older",
		Timestamp: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	newer, err := manager.AddAlert(Alert{Severity: SeverityLow, Message: "newer"})
	require.NoError(t, err)

	active := manager.ActiveAlerts()
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)
	assert.Equal(t, older.ID, active[1].ID)
}

// TestCleanupOldAlerts_OnlyAcknowledgedExpire tests that unacknowledged alerts
// never expire regardless of age
func TestCleanupOldAlerts_OnlyAcknowledgedExpire(t *testing.T) {
	manager := newTestManager(t, nil)

	ancient := time.Now().Add(-48 * time.Hour)

	ackedOld, err := manager.AddAlert(Alert{Severity: SeverityLow, Message: "acked old", Timestamp: ancient})
	require.NoError(t, err)
	_, err = manager.AcknowledgeAlert(ackedOld.ID)
	require.NoError(t, err)

	unackedOld, err := manager.AddAlert(Alert{Severity: SeverityHigh, Message: "unacked old", Timestamp: ancient})
	require.NoError(t, err)

	ackedFresh, err := manager.AddAlert(Alert{Severity: SeverityLow, Message: "acked fresh"})
	require.NoError(t, err)
	_, err = manager.AcknowledgeAlert(ackedFresh.ID)
	require.NoError(t, err)

	removed := manager.CleanupOldAlerts()
	assert.Equal(t, 1, removed)

	remaining := manager.AllAlerts()
	require.Len(t, remaining, 2)
	ids := []string{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, unackedOld.ID)
	assert.Contains(t, ids, ackedFresh.ID)
}

// TestExecuteActionSet_HaltTrading tests the halt action against a healthy and
// a failing execution service
func TestExecuteActionSet_HaltTrading(t *testing.T) {
	execution := &fakeExecution{}
	manager := newTestManager(t, execution)

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionHaltTrading})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)
	assert.True(t, execution.stopped)

	failing := &fakeExecution{stopErr: fmt.Errorf("execution unreachable")}
	manager = newTestManager(t, failing)
	actions = manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionHaltTrading})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultFailed, actions[0].Result)
}

// TestExecuteActionSet_EmergencyCloseGrading tests the closed-count grading
func TestExecuteActionSet_EmergencyCloseGrading(t *testing.T) {
	openBook := []services.Position{
		{ID: "p1", Symbol: "BTCUSDT", Size: 5000},
		{ID: "p2", Symbol: "ETHUSDT", Size: 3000},
		{ID: "p3", Symbol: "SOLUSDT", Size: 1000},
	}

	full := &fakeExecution{positions: openBook, closed: 3}
	actions := newTestManager(t, full).ExecuteActionSet(context.Background(), "test", []ActionType{ActionEmergencyClose})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)

	partial := &fakeExecution{positions: openBook, closed: 2, closeErr: fmt.Errorf("p3 stuck")}
	actions = newTestManager(t, partial).ExecuteActionSet(context.Background(), "test", []ActionType{ActionEmergencyClose})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultPartial, actions[0].Result)

	failed := &fakeExecution{positions: openBook, closed: 0, closeErr: fmt.Errorf("exchange down")}
	actions = newTestManager(t, failed).ExecuteActionSet(context.Background(), "test", []ActionType{ActionEmergencyClose})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultFailed, actions[0].Result)
}

// TestExecuteActionSet_ReducePositions tests that the largest half of the book
// is halved, smallest positions untouched
func TestExecuteActionSet_ReducePositions(t *testing.T) {
	execution := &fakeExecution{positions: []services.Position{
		{ID: "p1", Symbol: "BTCUSDT", Size: 100},
		{ID: "p2", Symbol: "ETHUSDT", Size: 400},
		{ID: "p3", Symbol: "SOLUSDT", Size: 200},
		{ID: "p4", Symbol: "XRPUSDT", Size: 300},
	}}
	manager := newTestManager(t, execution)

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionReducePositions})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)

	require.Len(t, execution.updated, 2)
	assert.Equal(t, 200.0, execution.updated["p2"])
	assert.Equal(t, 150.0, execution.updated["p4"])
}

// TestExecuteActionSet_ReducePositionsEmptyBook tests the no-op success path
func TestExecuteActionSet_ReducePositionsEmptyBook(t *testing.T) {
	manager := newTestManager(t, &fakeExecution{})

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionReducePositions})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)
}

// TestExecuteActionSet_LimitExposure tests proportional scaling only when the
// book exceeds the configured portfolio cap
func TestExecuteActionSet_LimitExposure(t *testing.T) {
	over := &fakeExecution{positions: []services.Position{
		{ID: "p1", Symbol: "BTCUSDT", Size: 90000},
		{ID: "p2", Symbol: "ETHUSDT", Size: 60000},
	}}
	manager := newTestManager(t, over)

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionLimitExposure})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)
	require.Len(t, over.updated, 2)
	assert.InDelta(t, 60000.0, over.updated["p1"], 0.001)
	assert.InDelta(t, 40000.0, over.updated["p2"], 0.001)

	within := &fakeExecution{positions: []services.Position{
		{ID: "p1", Symbol: "BTCUSDT", Size: 50000},
	}}
	manager = newTestManager(t, within)
	actions = manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionLimitExposure})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)
	assert.Empty(t, within.updated)
}

// TestExecuteActionSet_CircuitBreaker tests the pause-and-tighten combination
func TestExecuteActionSet_CircuitBreaker(t *testing.T) {
	execution := &fakeExecution{}
	manager := newTestManager(t, execution)
	control := &fakeControl{}
	manager.SetMonitoringControl(control)

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionCircuitBreaker})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultSuccess, actions[0].Result)
	assert.True(t, execution.stopped)
	assert.Equal(t, tightenedInterval, control.tightened)
}

// TestExecuteActionSet_CircuitBreakerWithoutControl tests the partial grade
// when no monitoring hook is wired
func TestExecuteActionSet_CircuitBreakerWithoutControl(t *testing.T) {
	manager := newTestManager(t, &fakeExecution{})

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionCircuitBreaker})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultPartial, actions[0].Result)
}

// TestExecuteActionSet_FailureNeverAbortsSiblings tests that a failed action
// does not prevent the following ones from running
func TestExecuteActionSet_FailureNeverAbortsSiblings(t *testing.T) {
	execution := &fakeExecution{stopErr: fmt.Errorf("execution unreachable")}
	manager := newTestManager(t, execution)

	actions := manager.ExecuteActionSet(context.Background(), "test",
		[]ActionType{ActionHaltTrading, ActionNotifyAdmin})
	require.Len(t, actions, 2)
	assert.Equal(t, ResultFailed, actions[0].Result)
	assert.Equal(t, ResultSuccess, actions[1].Result)
}

// TestRecentActions_NewestFirstAndRecorded tests the executed-actions log
func TestRecentActions_NewestFirstAndRecorded(t *testing.T) {
	manager := newTestManager(t, &fakeExecution{})

	manager.ExecuteActionSet(context.Background(), "test",
		[]ActionType{ActionHaltTrading, ActionNotifyAdmin})

	recent := manager.RecentActions()
	require.Len(t, recent, 2)
	assert.Equal(t, ActionNotifyAdmin, recent[0].Type)
	assert.Equal(t, ActionHaltTrading, recent[1].Type)
	for _, action := range recent {
		assert.True(t, action.Executed)
		assert.NotEmpty(t, action.ID)
	}
}

// TestExecuteActionSet_UnknownActionFails tests the unknown-type guard
func TestExecuteActionSet_UnknownActionFails(t *testing.T) {
	manager := newTestManager(t, &fakeExecution{})

	actions := manager.ExecuteActionSet(context.Background(), "test", []ActionType{ActionType("teleport")})
	require.Len(t, actions, 1)
	assert.Equal(t, ResultFailed, actions[0].Result)
}
