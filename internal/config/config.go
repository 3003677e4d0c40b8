package config

import (
	"os"
	"strconv"
	"time"
)

// SafetyThresholds holds the monitoring thresholds evaluated on every cycle.
// Percent values are expressed on a 0-100 scale.
type SafetyThresholds struct {
	MaxDrawdownPercent      float64 `json:"max_drawdown_percent"`
	MinSuccessRate          float64 `json:"min_success_rate"`
	MaxConsecutiveLosses    int     `json:"max_consecutive_losses"`
	MaxAPILatencyMs         float64 `json:"max_api_latency_ms"`
	MinPatternAccuracy      float64 `json:"min_pattern_accuracy"`
	MaxMemoryUsageMB        float64 `json:"max_memory_usage_mb"`
	MaxConcentrationPercent float64 `json:"max_concentration_percent"`
}

// RiskLimits holds the limits the trade risk engine enforces
type RiskLimits struct {
	MaxSinglePositionSize float64 `json:"max_single_position_size"` // USD
	MaxPortfolioValue     float64 `json:"max_portfolio_value"`      // USD
	MaxRiskScore          float64 `json:"max_risk_score"`           // approval cutoff on the 0-100 composite
	MinPositionSize       float64 `json:"min_position_size"`        // minimum viable trade, units

	// Emergency market-condition thresholds. Volatility and liquidity are
	// index values on a 0-100 scale, correlation risk is 0-1.
	EmergencyVolatilityThreshold  float64 `json:"emergency_volatility_threshold"`
	EmergencyLiquidityThreshold   float64 `json:"emergency_liquidity_threshold"`
	EmergencyCorrelationThreshold float64 `json:"emergency_correlation_threshold"`
}

// SafetyConfig is the complete safety-monitoring configuration. Updates are
// atomic whole-struct replacements through the Manager, never field pokes.
type SafetyConfig struct {
	Preset string `json:"preset"`

	Thresholds SafetyThresholds `json:"thresholds"`
	Risk       RiskLimits       `json:"risk"`

	MonitoringInterval     time.Duration `json:"monitoring_interval"`
	RiskAssessmentInterval time.Duration `json:"risk_assessment_interval"`
	AlertCleanupInterval   time.Duration `json:"alert_cleanup_interval"`

	AlertRetentionHours int  `json:"alert_retention_hours"`
	AutoActionEnabled   bool `json:"auto_action_enabled"`

	// Timer coordinator settings
	CoordinationTick        time.Duration `json:"coordination_tick"`
	MaxConcurrentOperations int           `json:"max_concurrent_operations"`
	OperationTimeout        time.Duration `json:"operation_timeout"`

	Monitoring struct {
		PrometheusPort int `json:"prometheus_port"`
		HealthPort     int `json:"health_port"`
	} `json:"monitoring"`

	// Directory the shutdown snapshot is exported to as JSON and Excel.
	// Empty disables file export; the console report is always printed.
	Reporting struct {
		Dir string `json:"dir"`
	} `json:"reporting"`

	Exchange struct {
		APIKey    string `json:"-"`
		APISecret string `json:"-"`
		Category  string `json:"category"`
		Testnet   bool   `json:"testnet"`
	} `json:"exchange"`

	Notifications struct {
		TelegramToken  string `json:"-"`
		TelegramChatID string `json:"-"`
	} `json:"notifications"`

	// Base URLs of the collaborator services the monitor supervises
	Services struct {
		ExecutionURL string `json:"execution_url"`
		PatternURL   string `json:"pattern_url"`
		HealthURL    string `json:"health_url"`
	} `json:"services"`
}

// Load builds a SafetyConfig from environment variables, starting from the
// Balanced preset so a bare environment still yields a runnable configuration.
func Load() *SafetyConfig {
	cfg := BalancedConfig()

	cfg.Thresholds.MaxDrawdownPercent = getEnvFloat("MAX_DRAWDOWN_PERCENT", cfg.Thresholds.MaxDrawdownPercent)
	cfg.Thresholds.MinSuccessRate = getEnvFloat("MIN_SUCCESS_RATE", cfg.Thresholds.MinSuccessRate)
	cfg.Thresholds.MaxConsecutiveLosses = getEnvInt("MAX_CONSECUTIVE_LOSSES", cfg.Thresholds.MaxConsecutiveLosses)
	cfg.Thresholds.MaxAPILatencyMs = getEnvFloat("MAX_API_LATENCY_MS", cfg.Thresholds.MaxAPILatencyMs)

	cfg.Risk.MaxSinglePositionSize = getEnvFloat("MAX_SINGLE_POSITION_SIZE", cfg.Risk.MaxSinglePositionSize)
	cfg.Risk.MaxPortfolioValue = getEnvFloat("MAX_PORTFOLIO_VALUE", cfg.Risk.MaxPortfolioValue)

	cfg.MonitoringInterval = getEnvDuration("MONITORING_INTERVAL", cfg.MonitoringInterval)
	cfg.AlertRetentionHours = getEnvInt("ALERT_RETENTION_HOURS", cfg.AlertRetentionHours)
	cfg.AutoActionEnabled = getEnvBool("AUTO_ACTION_ENABLED", cfg.AutoActionEnabled)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Reporting.Dir = getEnv("REPORT_DIR", "")

	cfg.Exchange.APIKey = getEnv("BYBIT_API_KEY", "")
	cfg.Exchange.APISecret = getEnv("BYBIT_API_SECRET", "")
	cfg.Exchange.Category = getEnv("BYBIT_CATEGORY", "linear")
	cfg.Exchange.Testnet = getEnvBool("BYBIT_TESTNET", true)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	cfg.Services.ExecutionURL = getEnv("EXECUTION_SERVICE_URL", "http://localhost:9101")
	cfg.Services.PatternURL = getEnv("PATTERN_SERVICE_URL", "http://localhost:9102")
	cfg.Services.HealthURL = getEnv("HEALTH_SERVICE_URL", "http://localhost:9103")

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
