// Package reporting renders safety reports and assessment results for
// operators: console tables, JSON files and Excel workbooks.
package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitor"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/risk"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/stress"
)

// ConsoleReporter renders safety output to stdout
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintSafetyReport renders the full safety report
func (r *ConsoleReporter) PrintSafetyReport(report *monitor.SafetyReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SAFETY REPORT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🟢 Status", report.Status},
		{"🚨 Emergency", fmt.Sprintf("%t", report.EmergencyActive)},
		{"📊 Risk Score", fmt.Sprintf("%.1f / 100", report.OverallRiskScore)},
		{"💰 Portfolio Value", fmt.Sprintf("$%.2f", report.RiskMetrics.TotalValue)},
		{"📉 Concentration", fmt.Sprintf("%.1f%%", report.RiskMetrics.ConcentrationRisk)},
		{"📈 VaR (95%)", fmt.Sprintf("$%.2f", report.RiskMetrics.ValueAtRisk95)},
		{"🔄 Cycles", fmt.Sprintf("%d", report.MonitoringStats.CyclesCompleted)},
	})

	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🌪 Volatility Index", fmt.Sprintf("%.1f", report.MarketConditions.VolatilityIndex)},
		{"💧 Liquidity Index", fmt.Sprintf("%.1f", report.MarketConditions.LiquidityIndex)},
		{"🔗 Correlation Risk", fmt.Sprintf("%.2f", report.MarketConditions.CorrelationRisk)},
		{"🧭 Sentiment", string(report.MarketConditions.Sentiment)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	if len(report.ActiveAlerts) > 0 {
		r.printAlerts(report)
	}
	if len(report.Recommendations) > 0 {
		fmt.Println("📋 Recommendations:")
		for _, rec := range report.Recommendations {
			fmt.Printf("   • %s\n", rec)
		}
		fmt.Println()
	}
}

func (r *ConsoleReporter) printAlerts(report *monitor.SafetyReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("ACTIVE ALERTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Severity", "Category", "Message", "Raised"})

	for _, a := range report.ActiveAlerts {
		t.AppendRow(table.Row{
			strings.ToUpper(string(a.Severity)),
			a.Category,
			a.Message,
			a.Timestamp.Format("15:04:05"),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Println()
}

// PrintAssessment renders a comprehensive risk assessment
func (r *ConsoleReporter) PrintAssessment(assessment *risk.ComprehensiveAssessment) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RISK ASSESSMENT")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Dimension", "Score", "Rating"})

	for _, sub := range []risk.SubAssessment{
		assessment.Portfolio, assessment.Performance, assessment.Pattern, assessment.System,
	} {
		t.AppendRow(table.Row{sub.Name, fmt.Sprintf("%.1f", sub.Score), sub.Rating})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"overall", fmt.Sprintf("%.1f", assessment.OverallScore), string(assessment.Status)})
	t.Render()

	if len(assessment.Recommendations) > 0 {
		fmt.Println("📋 Recommendations:")
		for _, rec := range assessment.Recommendations {
			fmt.Printf("   • %s\n", rec)
		}
	}
	fmt.Println()
}

// PrintStressResults renders stress scenario outcomes
func (r *ConsoleReporter) PrintStressResults(results []stress.ScenarioResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("STRESS TEST")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Scenario", "Est. Loss", "Impact", "Score", "Survivable"})

	for _, res := range results {
		survivable := "✅"
		if !res.Survivable {
			survivable = "❌"
		}
		t.AppendRow(table.Row{
			res.Scenario.Name,
			fmt.Sprintf("$%.2f", res.EstimatedLoss),
			fmt.Sprintf("%.1f%%", res.PortfolioImpact),
			fmt.Sprintf("%.1f", res.RiskScore),
			survivable,
		})
	}

	t.Render()
	fmt.Println()
}
