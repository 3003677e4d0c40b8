package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitor"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/stress"
)

// ExcelReporter writes safety output as Excel workbooks
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// excelStyles holds the style ids used across sheets
type excelStyles struct {
	header int
	money  int
}

// WriteSafetyWorkbook writes the safety report and stress results into one
// workbook with a sheet per concern.
func (r *ExcelReporter) WriteSafetyWorkbook(report *monitor.SafetyReport, stressResults []stress.ScenarioResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const alertsSheet = "Alerts"
	const stressSheet = "Stress Test"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(alertsSheet)
	fx.NewSheet(stressSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, report, styles); err != nil {
		return err
	}
	if err := r.writeAlertsSheet(fx, alertsSheet, report, styles); err != nil {
		return err
	}
	if err := r.writeStressSheet(fx, stressSheet, stressResults, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"1F4E78"},
			Pattern: 1,
		},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create header style: %w", err)
	}

	styles.money, err = fx.NewStyle(&excelize.Style{NumFmt: 177})
	if err != nil {
		return styles, fmt.Errorf("failed to create money style: %w", err)
	}

	return styles, nil
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, report *monitor.SafetyReport, styles excelStyles) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Status", report.Status},
		{"Emergency Active", report.EmergencyActive},
		{"Overall Risk Score", report.OverallRiskScore},
		{"Portfolio Value", report.RiskMetrics.TotalValue},
		{"Total Exposure", report.RiskMetrics.TotalExposure},
		{"Concentration Risk (%)", report.RiskMetrics.ConcentrationRisk},
		{"Diversification Score", report.RiskMetrics.DiversificationScore},
		{"VaR 95", report.RiskMetrics.ValueAtRisk95},
		{"Expected Shortfall", report.RiskMetrics.ExpectedShortfall},
		{"Volatility Index", report.MarketConditions.VolatilityIndex},
		{"Liquidity Index", report.MarketConditions.LiquidityIndex},
		{"Market Sentiment", string(report.MarketConditions.Sentiment)},
		{"Monitoring Cycles", report.MonitoringStats.CyclesCompleted},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}

func (r *ExcelReporter) writeAlertsSheet(fx *excelize.File, sheet string, report *monitor.SafetyReport, styles excelStyles) error {
	header := []interface{}{"ID", "Severity", "Category", "Type", "Message", "Risk Level", "Raised", "Acknowledged"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, a := range report.ActiveAlerts {
		row := []interface{}{
			a.ID,
			string(a.Severity),
			a.Category,
			a.Type,
			a.Message,
			a.RiskLevel,
			a.Timestamp.Format("2006-01-02 15:04:05"),
			a.Acknowledged,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}

func (r *ExcelReporter) writeStressSheet(fx *excelize.File, sheet string, results []stress.ScenarioResult, styles excelStyles) error {
	header := []interface{}{"Scenario", "Price Change (%)", "Vol Multiplier", "Estimated Loss", "Impact (%)", "Risk Score", "Survivable"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, res := range results {
		row := []interface{}{
			res.Scenario.Name,
			res.Scenario.PriceChangePercent,
			res.Scenario.VolatilityMultiplier,
			res.EstimatedLoss,
			res.PortfolioImpact,
			res.RiskScore,
			res.Survivable,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}
