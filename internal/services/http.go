package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// httpTimeout bounds every collaborator call; the monitoring cycle has its
// own timeout above this one.
const httpTimeout = 10 * time.Second

// HTTPExecutionClient talks to the execution service over its HTTP API
type HTTPExecutionClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutionClient creates an execution-service client
func NewHTTPExecutionClient(baseURL string) *HTTPExecutionClient {
	return &HTTPExecutionClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// GetActivePositions implements ExecutionService
func (c *HTTPExecutionClient) GetActivePositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.getJSON(ctx, "/api/v1/positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetPerformanceMetrics implements ExecutionService
func (c *HTTPExecutionClient) GetPerformanceMetrics(ctx context.Context) (PerformanceMetrics, error) {
	var metrics PerformanceMetrics
	if err := c.getJSON(ctx, "/api/v1/metrics", &metrics); err != nil {
		return PerformanceMetrics{}, err
	}
	return metrics, nil
}

// StopExecution implements ExecutionService
func (c *HTTPExecutionClient) StopExecution(ctx context.Context) error {
	return c.postJSON(ctx, "/api/v1/stop", nil, nil)
}

// EmergencyCloseAll implements ExecutionService
func (c *HTTPExecutionClient) EmergencyCloseAll(ctx context.Context) (int, error) {
	var result struct {
		ClosedCount int `json:"closed_count"`
	}
	if err := c.postJSON(ctx, "/api/v1/emergency-close", nil, &result); err != nil {
		return 0, err
	}
	return result.ClosedCount, nil
}

// UpdatePositionSize implements ExecutionService
func (c *HTTPExecutionClient) UpdatePositionSize(ctx context.Context, positionID string, newSize float64) error {
	body := map[string]interface{}{"size": newSize}
	return c.postJSON(ctx, fmt.Sprintf("/api/v1/positions/%s/size", positionID), body, nil)
}

func (c *HTTPExecutionClient) getJSON(ctx context.Context, path string, out interface{}) error {
	return doJSON(ctx, c.client, http.MethodGet, c.baseURL+path, nil, out)
}

func (c *HTTPExecutionClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return doJSON(ctx, c.client, http.MethodPost, c.baseURL+path, body, out)
}

// HTTPPatternClient talks to the pattern monitor over its HTTP API
type HTTPPatternClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPatternClient creates a pattern-monitor client
func NewHTTPPatternClient(baseURL string) *HTTPPatternClient {
	return &HTTPPatternClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// GetMonitoringReport implements PatternMonitor
func (c *HTTPPatternClient) GetMonitoringReport(ctx context.Context) (PatternReport, error) {
	var report PatternReport
	if err := doJSON(ctx, c.client, http.MethodGet, c.baseURL+"/api/v1/report", nil, &report); err != nil {
		return PatternReport{}, err
	}
	return report, nil
}

// HTTPHealthClient talks to the infrastructure health service
type HTTPHealthClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPHealthClient creates a health-service client
func NewHTTPHealthClient(baseURL string) *HTTPHealthClient {
	return &HTTPHealthClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// PerformSystemHealthCheck implements HealthChecker
func (c *HTTPHealthClient) PerformSystemHealthCheck(ctx context.Context) (SystemHealth, error) {
	var health SystemHealth
	if err := doJSON(ctx, c.client, http.MethodGet, c.baseURL+"/api/v1/health", nil, &health); err != nil {
		return SystemHealth{}, err
	}
	return health, nil
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request to %s returned status %d", url, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", url, err)
		}
	}
	return nil
}
