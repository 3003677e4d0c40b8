package market

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
)

// historyCap bounds the rolling portfolio-metrics log used for trend queries
const historyCap = 1000

// Store owns the current market conditions and the open-position map.
// All access goes through its mutex; portfolio metrics are recomputed on
// every position mutation. Lock order: positions before metrics recompute.
type Store struct {
	mu         sync.RWMutex
	conditions Conditions
	positions  map[string]*PositionRiskProfile
	history    []PortfolioRiskMetrics

	limits config.RiskLimits
}

// NewStore creates a store initialized to neutral market conditions
func NewStore(limits config.RiskLimits) *Store {
	return &Store{
		conditions: DefaultConditions(),
		positions:  make(map[string]*PositionRiskProfile),
		history:    make([]PortfolioRiskMetrics, 0, historyCap),
		limits:     limits,
	}
}

// SetRiskLimits swaps the emergency thresholds, used after a config update
func (s *Store) SetRiskLimits(limits config.RiskLimits) {
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
}

// Conditions returns a copy of the current market conditions
func (s *Store) Conditions() Conditions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conditions
}

// UpdateConditions applies a validated partial update to the market
// conditions. Invalid updates are rejected without touching current state.
func (s *Store) UpdateConditions(update ConditionsUpdate) error {
	if err := update.Validate(); err != nil {
		return fmt.Errorf("market conditions update rejected: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if update.VolatilityIndex != nil {
		s.conditions.VolatilityIndex = *update.VolatilityIndex
	}
	if update.LiquidityIndex != nil {
		s.conditions.LiquidityIndex = *update.LiquidityIndex
	}
	if update.OrderBookDepth != nil {
		s.conditions.OrderBookDepth = *update.OrderBookDepth
	}
	if update.BidAskSpread != nil {
		s.conditions.BidAskSpread = *update.BidAskSpread
	}
	if update.TradingVolume24h != nil {
		s.conditions.TradingVolume24h = *update.TradingVolume24h
	}
	if update.PriceChange24h != nil {
		s.conditions.PriceChange24h = *update.PriceChange24h
	}
	if update.CorrelationRisk != nil {
		s.conditions.CorrelationRisk = *update.CorrelationRisk
	}
	if update.Sentiment != nil {
		s.conditions.Sentiment = *update.Sentiment
	}
	s.conditions.Timestamp = time.Now()

	return nil
}

// UpdatePosition upserts a position risk profile, recomputes the portfolio
// metrics and appends the snapshot to the rolling history.
func (s *Store) UpdatePosition(profile PositionRiskProfile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("position profile rejected: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := profile
	s.positions[profile.Symbol] = &stored
	s.appendHistoryLocked(s.portfolioMetricsLocked())

	return nil
}

// RemovePosition drops a position on full close. Removing an unknown symbol
// is a no-op.
func (s *Store) RemovePosition(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[symbol]; !ok {
		return
	}
	delete(s.positions, symbol)
	s.appendHistoryLocked(s.portfolioMetricsLocked())
}

// Position returns a copy of the profile for symbol
func (s *Store) Position(symbol string) (PositionRiskProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[symbol]
	if !ok {
		return PositionRiskProfile{}, false
	}
	return *p, true
}

// Positions returns copies of all open position profiles
func (s *Store) Positions() []PositionRiskProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PositionRiskProfile, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out
}

// PortfolioMetrics recomputes the derived portfolio risk metrics from the
// current position map. The computation is a pure function of the positions
// and conditions, so consecutive calls on an unchanged store are identical
// apart from the timestamp.
func (s *Store) PortfolioMetrics() PortfolioRiskMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portfolioMetricsLocked()
}

func (s *Store) portfolioMetricsLocked() PortfolioRiskMetrics {
	m := PortfolioRiskMetrics{
		LiquidityRisk: clamp(100-s.conditions.LiquidityIndex, 0, 100),
		PositionCount: len(s.positions),
		Timestamp:     time.Now(),
	}

	if len(s.positions) == 0 {
		m.DiversificationScore = 100
		return m
	}

	var largest, varSum, corrSum, ddWorst float64
	for _, p := range s.positions {
		m.TotalValue += p.Size
		m.TotalExposure += p.Size * math.Max(p.Leverage, 1)
		varSum += p.ValueAtRisk
		corrSum += p.CorrelationScore
		if p.Size > largest {
			largest = p.Size
		}
		if p.MaxDrawdown > ddWorst {
			ddWorst = p.MaxDrawdown
		}
	}

	if m.TotalValue > 0 {
		m.ConcentrationRisk = clamp(largest/m.TotalValue*100, 0, 100)
	}
	m.DiversificationScore = clamp(100-m.ConcentrationRisk, 0, 100)
	m.MaxSinglePositionPercent = m.ConcentrationRisk
	m.ValueAtRisk95 = varSum
	m.ExpectedShortfall = varSum * 1.3
	m.AverageCorrelation = corrSum / float64(len(s.positions))
	m.CurrentDrawdown = ddWorst

	return m
}

// appendHistoryLocked appends a metrics snapshot, evicting the oldest entry
// once the rolling log is full.
func (s *Store) appendHistoryLocked(m PortfolioRiskMetrics) {
	if len(s.history) >= historyCap {
		copy(s.history, s.history[1:])
		s.history = s.history[:historyCap-1]
	}
	s.history = append(s.history, m)
}

// History returns a copy of the rolling metrics log, oldest first
func (s *Store) History() []PortfolioRiskMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PortfolioRiskMetrics, len(s.history))
	copy(out, s.history)
	return out
}

// IsEmergencyConditions reports whether the market has crossed any of the
// configured emergency thresholds.
func (s *Store) IsEmergencyConditions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.conditions.VolatilityIndex > s.limits.EmergencyVolatilityThreshold ||
		s.conditions.LiquidityIndex < s.limits.EmergencyLiquidityThreshold ||
		s.conditions.CorrelationRisk > s.limits.EmergencyCorrelationThreshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
