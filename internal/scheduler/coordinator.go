// Package scheduler is the cooperative timer coordinator that drives the
// monitoring cycles. One tick loop scans the registered operations and
// dispatches the ready ones, never letting an operation overlap itself and
// never exceeding the global concurrency cap.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitoring"
)

// Handler is the unit of work a scheduled operation runs. The context
// carries both the per-operation timeout and coordinator shutdown.
type Handler func(ctx context.Context) error

// operation is the coordinator's record of one registered unit of work
type operation struct {
	id             string
	name           string
	interval       time.Duration
	handler        Handler
	lastExecuted   time.Time
	isRunning      bool
	executionCount uint64
	lastError      string
}

// OperationStats is a read-only snapshot of one operation
type OperationStats struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Interval       time.Duration `json:"interval"`
	LastExecuted   time.Time     `json:"last_executed"`
	IsRunning      bool          `json:"is_running"`
	ExecutionCount uint64        `json:"execution_count"`
	LastError      string        `json:"last_error,omitempty"`
}

// Stats is the coordinator's self-reported state
type Stats struct {
	Started         bool             `json:"started"`
	RunningNow      int              `json:"running_now"`
	TotalErrors     uint64           `json:"total_errors"`
	TotalExecutions uint64           `json:"total_executions"`
	Operations      []OperationStats `json:"operations"`
}

// Coordinator schedules named interval operations off a single tick loop
type Coordinator struct {
	mu         sync.Mutex
	operations map[string]*operation
	running    int
	errors     uint64
	executions uint64
	started    bool

	tick          time.Duration
	maxConcurrent int
	opTimeout     time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	log    *logger.Logger
}

// NewCoordinator creates a stopped coordinator
func NewCoordinator(tick time.Duration, maxConcurrent int, opTimeout time.Duration, log *logger.Logger) *Coordinator {
	if tick <= 0 {
		tick = 5 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Coordinator{
		operations:    make(map[string]*operation),
		tick:          tick,
		maxConcurrent: maxConcurrent,
		opTimeout:     opTimeout,
		log:           log,
	}
}

// Register adds a named operation and returns its id. Names must be unique;
// the interval and handler are validated up front.
func (c *Coordinator) Register(name string, interval time.Duration, handler Handler) (string, error) {
	if name == "" {
		return "", fmt.Errorf("operation name must not be empty")
	}
	if interval <= 0 {
		return "", fmt.Errorf("operation %q interval must be positive, got %v", name, interval)
	}
	if handler == nil {
		return "", fmt.Errorf("operation %q handler must not be nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, op := range c.operations {
		if op.name == name {
			return "", fmt.Errorf("operation %q already registered", name)
		}
	}

	id := uuid.New().String()
	c.operations[id] = &operation{
		id:       id,
		name:     name,
		interval: interval,
		handler:  handler,
	}
	c.log.Info("registered operation %q every %v", name, interval)
	return id, nil
}

// SetInterval changes an operation's interval, used by the circuit-breaker
// action to tighten monitoring temporarily.
func (c *Coordinator) SetInterval(id string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	op, ok := c.operations[id]
	if !ok {
		return fmt.Errorf("operation %s not found", id)
	}
	op.interval = interval
	return nil
}

// Start begins the tick loop. Starting twice is an error.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already started")
	}
	c.started = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.loop(ctx)
	c.log.Info("coordinator started, tick=%v maxConcurrent=%d timeout=%v",
		c.tick, c.maxConcurrent, c.opTimeout)
	return nil
}

// Stop halts new dispatch and cancels the contexts of in-flight operations
// so they can unwind. It returns once the tick loop has exited; in-flight
// handlers finish on their own goroutines.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
	c.log.Info("coordinator stopped")
}

func (c *Coordinator) loop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.dispatch(ctx)
		}
	}
}

// dispatch scans for ready operations, tightest interval first, and starts
// as many as the concurrency budget allows. The rest wait for the next tick.
func (c *Coordinator) dispatch(ctx context.Context) {
	now := time.Now()

	c.mu.Lock()
	var ready []*operation
	for _, op := range c.operations {
		if !op.isRunning && now.Sub(op.lastExecuted) >= op.interval {
			ready = append(ready, op)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].interval < ready[j].interval })

	slots := c.maxConcurrent - c.running
	if slots <= 0 {
		ready = nil
	} else if slots < len(ready) {
		ready = ready[:slots]
	}
	for _, op := range ready {
		op.isRunning = true
		op.lastExecuted = now
		c.running++
	}
	c.mu.Unlock()

	for _, op := range ready {
		go c.run(ctx, op)
	}
}

// run executes one operation under the per-operation timeout. A panicking
// or failing handler is recorded on the operation; the coordinator itself
// never stops because of it.
func (c *Coordinator) run(ctx context.Context, op *operation) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("operation panicked: %v", r)
			}
		}()
		errCh <- op.handler(opCtx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-opCtx.Done():
		err = fmt.Errorf("operation %q timed out after %v", op.name, c.opTimeout)
	}

	c.mu.Lock()
	op.isRunning = false
	c.running--
	if err != nil {
		op.lastError = err.Error()
		c.errors++
	} else {
		op.executionCount++
		op.lastError = ""
		c.executions++
	}
	c.mu.Unlock()

	if err != nil {
		monitoring.RecordOperationError(op.name)
		c.log.Error("operation %q failed: %v", op.name, err)
	}
}

// Stats returns a snapshot of the coordinator and all operations
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Started:         c.started,
		RunningNow:      c.running,
		TotalErrors:     c.errors,
		TotalExecutions: c.executions,
	}
	for _, op := range c.operations {
		stats.Operations = append(stats.Operations, OperationStats{
			ID:             op.id,
			Name:           op.name,
			Interval:       op.interval,
			LastExecuted:   op.lastExecuted,
			IsRunning:      op.isRunning,
			ExecutionCount: op.executionCount,
			LastError:      op.lastError,
		})
	}
	sort.Slice(stats.Operations, func(i, j int) bool {
		return stats.Operations[i].Name < stats.Operations[j].Name
	})
	return stats
}
