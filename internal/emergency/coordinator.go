// Package emergency implements the fan-out/fan-in protocol that delivers a
// stop signal to every registered service during a critical event.
package emergency

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

// StopEvent describes one emergency. Transient: it lives for the duration of
// the coordination call and whatever alert it produces.
type StopEvent struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	TriggeredBy string                 `json:"triggered_by"`
	Severity    string                 `json:"severity"`
	Reason      string                 `json:"reason"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Stoppable is implemented by every service that must react to an emergency
type Stoppable interface {
	EmergencyStop(ctx context.Context, event StopEvent) error
}

// StoppableFunc adapts a function to the Stoppable interface
type StoppableFunc func(ctx context.Context, event StopEvent) error

// EmergencyStop implements Stoppable
func (f StoppableFunc) EmergencyStop(ctx context.Context, event StopEvent) error {
	return f(ctx, event)
}

// Result is the fan-in summary of one coordinated stop
type Result struct {
	Success             bool          `json:"success"`
	ActionsExecuted     []string      `json:"actions_executed"`
	CoordinatedServices []string      `json:"coordinated_services"`
	Errors              []string      `json:"errors"`
	Duration            time.Duration `json:"duration"`
}

// stopTimeout bounds each service's emergency hook; a hung service must not
// hold the rest of the shutdown hostage.
const stopTimeout = 15 * time.Second

// Coordinator keeps the registry of stoppable services and runs the fan-out
type Coordinator struct {
	mu       sync.RWMutex
	services map[string]Stoppable
	log      *logger.Logger
}

// NewCoordinator creates an emergency-stop coordinator with an empty registry
func NewCoordinator(log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Coordinator{
		services: make(map[string]Stoppable),
		log:      log,
	}
}

// Register adds a named service to the stop registry
func (c *Coordinator) Register(name string, service Stoppable) error {
	if name == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if service == nil {
		return fmt.Errorf("service %q must not be nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[name]; exists {
		return fmt.Errorf("service %q already registered", name)
	}
	c.services[name] = service
	c.log.Info("registered emergency-stop service %q", name)
	return nil
}

// Unregister removes a service; unknown names are a no-op
func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	delete(c.services, name)
	c.mu.Unlock()
}

// Services returns the registered service names, sorted
func (c *Coordinator) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trigger invokes every registered service's stop hook in parallel, each
// with its own error boundary, and waits for all of them to settle. One
// failing service never prevents the others from receiving the signal.
func (c *Coordinator) Trigger(ctx context.Context, event StopEvent) Result {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.RLock()
	targets := make(map[string]Stoppable, len(c.services))
	for name, svc := range c.services {
		targets[name] = svc
	}
	c.mu.RUnlock()

	c.log.Alert("emergency stop triggered by %s: %s (%d services)",
		event.TriggeredBy, event.Reason, len(targets))
	monitoring.RecordEmergencyStop()

	start := time.Now()

	type outcome struct {
		name string
		err  error
	}
	outcomes := make(chan outcome, len(targets))

	var wg sync.WaitGroup
	for name, svc := range targets {
		wg.Add(1)
		go func(name string, svc Stoppable) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("emergency stop panicked: %v", r)
					}
				}()
				stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
				defer cancel()
				err = svc.EmergencyStop(stopCtx, event)
			}()
			outcomes <- outcome{name: name, err: err}
		}(name, svc)
	}
	wg.Wait()
	close(outcomes)

	result := Result{Duration: time.Since(start)}
	for o := range outcomes {
		if o.err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.name, o.err))
			c.log.Error("emergency stop failed for %q: %v", o.name, o.err)
			continue
		}
		result.CoordinatedServices = append(result.CoordinatedServices, o.name)
		result.ActionsExecuted = append(result.ActionsExecuted, fmt.Sprintf("emergency_stop:%s", o.name))
	}
	sort.Strings(result.CoordinatedServices)
	sort.Strings(result.ActionsExecuted)
	sort.Strings(result.Errors)
	result.Success = len(result.Errors) == 0

	c.log.Info("emergency stop settled in %v: %d ok, %d failed",
		result.Duration, len(result.CoordinatedServices), len(result.Errors))
	return result
}
