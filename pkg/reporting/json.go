package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitor"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/risk"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/stress"
)

// JSONReporter writes safety output as indented JSON files
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// WriteSafetyReport writes a safety report to path
func (r *JSONReporter) WriteSafetyReport(report *monitor.SafetyReport, path string) error {
	return writeJSON(report, path)
}

// WriteAssessment writes a comprehensive assessment to path
func (r *JSONReporter) WriteAssessment(assessment *risk.ComprehensiveAssessment, path string) error {
	return writeJSON(assessment, path)
}

// WriteStressResults writes stress scenario outcomes to path
func (r *JSONReporter) WriteStressResults(results []stress.ScenarioResult, path string) error {
	return writeJSON(results, path)
}

func writeJSON(v interface{}, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
