package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
)

// Aggregate weights of the four sub-assessments. They sum to 1.0.
const (
	weightPortfolioAssessment   = 0.30
	weightPerformanceAssessment = 0.30
	weightPatternAssessment     = 0.20
	weightSystemAssessment      = 0.20
)

// AssessmentStatus is the overall standing derived from the composite score
type AssessmentStatus string

const (
	StatusSafe      AssessmentStatus = "safe"      // score < 25
	StatusWarning   AssessmentStatus = "warning"   // score < 50
	StatusCritical  AssessmentStatus = "critical"  // score < 75
	StatusEmergency AssessmentStatus = "emergency" // score >= 75
)

// SubAssessment is one dimension of the comprehensive risk assessment
type SubAssessment struct {
	Name            string   `json:"name"`
	Score           float64  `json:"score"` // 0-100
	Rating          string   `json:"rating"`
	Findings        []string `json:"findings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ComprehensiveAssessment combines portfolio, performance, pattern and
// system-health views into one score and a prioritized recommendation list.
type ComprehensiveAssessment struct {
	OverallScore    float64          `json:"overall_score"`
	Status          AssessmentStatus `json:"status"`
	Portfolio       SubAssessment    `json:"portfolio"`
	Performance     SubAssessment    `json:"performance"`
	Pattern         SubAssessment    `json:"pattern"`
	System          SubAssessment    `json:"system"`
	Recommendations []string         `json:"recommendations"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Aggregator runs the four sub-assessments concurrently and folds them into
// a single comprehensive view. Collaborator failures never fail the
// assessment; the affected dimension falls back to its conservative default.
type Aggregator struct {
	cfg       *config.Manager
	store     *market.Store
	execution services.ExecutionService
	patterns  services.PatternMonitor
	health    services.HealthChecker
	log       *logger.Logger
}

// NewAggregator creates a comprehensive risk assessment aggregator
func NewAggregator(cfg *config.Manager, store *market.Store, execution services.ExecutionService, patterns services.PatternMonitor, health services.HealthChecker, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Aggregator{
		cfg:       cfg,
		store:     store,
		execution: execution,
		patterns:  patterns,
		health:    health,
		log:       log,
	}
}

// Assess runs all four sub-assessments in parallel and composes the result
func (a *Aggregator) Assess(ctx context.Context) *ComprehensiveAssessment {
	result := &ComprehensiveAssessment{Timestamp: time.Now()}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		result.Portfolio = a.assessPortfolio()
	}()
	go func() {
		defer wg.Done()
		result.Performance = a.assessPerformance(ctx)
	}()
	go func() {
		defer wg.Done()
		result.Pattern = a.assessPatterns(ctx)
	}()
	go func() {
		defer wg.Done()
		result.System = a.assessSystem(ctx)
	}()
	wg.Wait()

	result.OverallScore = result.Portfolio.Score*weightPortfolioAssessment +
		result.Performance.Score*weightPerformanceAssessment +
		result.Pattern.Score*weightPatternAssessment +
		result.System.Score*weightSystemAssessment
	result.Status = statusForScore(result.OverallScore)
	result.Recommendations = a.prioritizeRecommendations(result)

	a.log.Info("comprehensive assessment: score=%.1f status=%s", result.OverallScore, result.Status)
	return result
}

func (a *Aggregator) assessPortfolio() SubAssessment {
	sub := SubAssessment{Name: "portfolio"}
	metrics := a.store.PortfolioMetrics()
	thresholds := a.cfg.Current().Thresholds

	if metrics.PositionCount == 0 {
		sub.Score = metrics.LiquidityRisk * 0.3
		sub.Rating = "good"
		sub.Findings = append(sub.Findings, "no open positions")
		return sub
	}

	drawdownScore := math.Min(metrics.CurrentDrawdown/thresholds.MaxDrawdownPercent*100, 100)
	var varScore float64
	if metrics.TotalValue > 0 {
		varScore = math.Min(metrics.ValueAtRisk95/metrics.TotalValue*100*2, 100)
	}

	sub.Score = metrics.ConcentrationRisk*0.35 +
		metrics.LiquidityRisk*0.25 +
		drawdownScore*0.25 +
		varScore*0.15
	sub.Rating = ratingForScore(sub.Score)

	if metrics.ConcentrationRisk > thresholds.MaxConcentrationPercent {
		sub.Findings = append(sub.Findings,
			fmt.Sprintf("concentration %.1f%% exceeds limit %.1f%%", metrics.ConcentrationRisk, thresholds.MaxConcentrationPercent))
		sub.Recommendations = append(sub.Recommendations, "rebalance the portfolio to reduce the largest position")
	}
	if drawdownScore >= 100 {
		sub.Findings = append(sub.Findings,
			fmt.Sprintf("drawdown %.1f%% at or beyond limit", metrics.CurrentDrawdown))
		sub.Recommendations = append(sub.Recommendations, "reduce exposure until drawdown recovers")
	}
	if metrics.AverageCorrelation > 0.7 {
		sub.Recommendations = append(sub.Recommendations, "diversify into less correlated assets")
	}

	return sub
}

func (a *Aggregator) assessPerformance(ctx context.Context) SubAssessment {
	sub := SubAssessment{Name: "performance"}
	thresholds := a.cfg.Current().Thresholds

	metrics, err := a.execution.GetPerformanceMetrics(ctx)
	if err != nil {
		a.log.Warning("performance metrics unavailable, using fallback: %v", err)
		metrics = services.DefaultPerformanceMetrics()
		sub.Findings = append(sub.Findings, "execution service unreachable, metrics are fallback values")
		sub.Recommendations = append(sub.Recommendations, "investigate execution service connectivity")
	}

	switch {
	case metrics.SuccessRate >= 70 && metrics.MaxDrawdown < thresholds.MaxDrawdownPercent/2:
		sub.Rating, sub.Score = "excellent", 10
	case metrics.SuccessRate >= thresholds.MinSuccessRate:
		sub.Rating, sub.Score = "good", 30
	case metrics.SuccessRate >= thresholds.MinSuccessRate-10:
		sub.Rating, sub.Score = "concerning", 60
	default:
		sub.Rating, sub.Score = "poor", 90
	}

	if metrics.SuccessRate < thresholds.MinSuccessRate {
		sub.Findings = append(sub.Findings,
			fmt.Sprintf("success rate %.1f%% below minimum %.1f%%", metrics.SuccessRate, thresholds.MinSuccessRate))
		sub.Recommendations = append(sub.Recommendations, "review strategy parameters, success rate is degrading")
	}
	if metrics.ConsecutiveLosses > thresholds.MaxConsecutiveLosses {
		sub.Findings = append(sub.Findings,
			fmt.Sprintf("%d consecutive losses exceeds limit %d", metrics.ConsecutiveLosses, thresholds.MaxConsecutiveLosses))
		sub.Recommendations = append(sub.Recommendations, "pause trading after the loss streak")
	}

	return sub
}

func (a *Aggregator) assessPatterns(ctx context.Context) SubAssessment {
	sub := SubAssessment{Name: "pattern"}
	thresholds := a.cfg.Current().Thresholds

	report, err := a.patterns.GetMonitoringReport(ctx)
	if err != nil {
		a.log.Warning("pattern report unavailable, using fallback: %v", err)
		report = services.DefaultPatternReport()
		sub.Findings = append(sub.Findings, "pattern monitor unreachable, status is fallback value")
		sub.Recommendations = append(sub.Recommendations, "investigate pattern monitor connectivity")
	}

	switch report.Status {
	case "healthy":
		if report.Stats.AverageConfidence >= 80 {
			sub.Rating, sub.Score = "excellent", 10
		} else {
			sub.Rating, sub.Score = "good", 30
		}
	case "degraded":
		sub.Rating, sub.Score = "degraded", 60
	default:
		sub.Rating, sub.Score = "unreliable", 90
	}

	if report.Stats.AverageConfidence < thresholds.MinPatternAccuracy {
		sub.Findings = append(sub.Findings,
			fmt.Sprintf("pattern confidence %.1f%% below minimum %.1f%%",
				report.Stats.AverageConfidence, thresholds.MinPatternAccuracy))
		sub.Recommendations = append(sub.Recommendations, "retrain or disable low-confidence pattern signals")
	}

	return sub
}

func (a *Aggregator) assessSystem(ctx context.Context) SubAssessment {
	sub := SubAssessment{Name: "system"}

	health, err := a.health.PerformSystemHealthCheck(ctx)
	if err != nil {
		a.log.Warning("system health unavailable, using fallback: %v", err)
		health = services.DefaultSystemHealth()
		sub.Recommendations = append(sub.Recommendations, "investigate health-check collaborator")
	}

	overallScore := ordinalScore(health.Overall, "healthy", "degraded")
	connectivityScore := ordinalScore(health.Connectivity, "reliable", "degraded")
	sub.Score = math.Max(overallScore, connectivityScore)
	sub.Rating = ratingForScore(sub.Score)
	sub.Findings = append(sub.Findings, health.Alerts...)

	if connectivityScore >= 60 {
		sub.Recommendations = append(sub.Recommendations, "verify exchange and service connectivity")
	}

	return sub
}

// prioritizeRecommendations short-circuits to urgent guidance when any single
// dimension is severely degraded, otherwise surfaces the top of the union.
func (a *Aggregator) prioritizeRecommendations(result *ComprehensiveAssessment) []string {
	subs := []SubAssessment{result.Portfolio, result.Performance, result.Pattern, result.System}

	for _, s := range subs {
		if s.Score >= 90 {
			return []string{fmt.Sprintf("URGENT: %s assessment severely degraded (score %.0f), intervene immediately", s.Name, s.Score)}
		}
	}
	for _, s := range subs {
		if s.Score >= 75 {
			return []string{fmt.Sprintf("CRITICAL: %s assessment degraded (score %.0f), action required", s.Name, s.Score)}
		}
	}

	// Highest-scoring dimensions contribute their recommendations first
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Score > subs[j].Score })

	var out []string
	seen := make(map[string]bool)
	for _, s := range subs {
		for _, rec := range s.Recommendations {
			if !seen[rec] {
				seen[rec] = true
				out = append(out, rec)
			}
			if len(out) == 3 {
				return out
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "all risk dimensions within acceptable bounds")
	}
	return out
}

func statusForScore(score float64) AssessmentStatus {
	switch {
	case score < 25:
		return StatusSafe
	case score < 50:
		return StatusWarning
	case score < 75:
		return StatusCritical
	default:
		return StatusEmergency
	}
}

func ratingForScore(score float64) string {
	switch {
	case score < 25:
		return "excellent"
	case score < 50:
		return "good"
	case score < 75:
		return "concerning"
	default:
		return "poor"
	}
}

// ordinalScore maps a collaborator status string onto the fixed 10/60/90 scale
func ordinalScore(value, best, middle string) float64 {
	switch value {
	case best:
		return 10
	case middle:
		return 60
	default:
		return 90
	}
}
