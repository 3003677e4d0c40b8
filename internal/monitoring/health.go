package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu              sync.RWMutex
	lastCycle       time.Time
	monitoringOn    bool
	emergencyActive bool
	riskScore       float64
	errors          []string
}

type HealthStatus struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	LastCycle       time.Time `json:"last_cycle"`
	MonitoringOn    bool      `json:"monitoring_on"`
	EmergencyActive bool      `json:"emergency_active"`
	RiskScore       float64   `json:"risk_score"`
	Uptime          string    `json:"uptime"`
	Errors          []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.monitoringOn || (h.monitoringOn && time.Since(h.lastCycle) > 5*time.Minute) {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if h.emergencyActive || len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:          status,
		Timestamp:       time.Now(),
		LastCycle:       h.lastCycle,
		MonitoringOn:    h.monitoringOn,
		EmergencyActive: h.emergencyActive,
		RiskScore:       h.riskScore,
		Uptime:          time.Since(startTime).String(),
		Errors:          h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// RecordCycle notes a completed monitoring cycle and its risk score
func (h *HealthChecker) RecordCycle(riskScore float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = time.Now()
	h.riskScore = riskScore
	h.errors = h.errors[:0]
}

// SetMonitoring marks whether the monitoring loop is running
func (h *HealthChecker) SetMonitoring(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitoringOn = on
}

// SetEmergency marks whether the emergency flag is raised
func (h *HealthChecker) SetEmergency(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emergencyActive = active
}

// RecordError appends an error to the health report, keeping the last 10
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 10 {
		h.errors = h.errors[len(h.errors)-10:]
	}
}
