package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/crypto-safety-monitor/internal/alerts"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/config"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/emergency"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/events"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/logger"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/market"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitor"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/monitoring"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/notifications"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/risk"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/scheduler"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/services"
	"github.com/ducminhle1904/crypto-safety-monitor/internal/stress"
	"github.com/ducminhle1904/crypto-safety-monitor/pkg/reporting"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appLog, err := logger.New("orchestrator")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Close()

	cfg := config.Load()
	manager, err := config.NewManager(cfg)
	if err != nil {
		appLog.Error("invalid configuration: %v", err)
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Core state
	store := market.NewStore(cfg.Risk)
	bus := events.NewBus(appLog)

	// Collaborator clients
	execution := services.NewHTTPExecutionClient(cfg.Services.ExecutionURL)
	patterns := services.NewHTTPPatternClient(cfg.Services.PatternURL)
	health := services.NewHTTPHealthClient(cfg.Services.HealthURL)
	marketData := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Category:  cfg.Exchange.Category,
		Testnet:   cfg.Exchange.Testnet,
	})

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		notifier = notifications.NewTelegramNotifier(
			cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	}

	// Safety components
	alertManager := alerts.NewManager(manager, execution, notifier, bus, appLog)
	engine := risk.NewEngine(manager, store, appLog)
	calculator := risk.NewCalculator(manager, store)
	aggregator := risk.NewAggregator(manager, store, execution, patterns, health, appLog)
	tester := stress.NewTester(manager, store, appLog)
	coordinator := scheduler.NewCoordinator(
		cfg.CoordinationTick, cfg.MaxConcurrentOperations, cfg.OperationTimeout, appLog)
	emergencyCoord := emergency.NewCoordinator(appLog)
	healthChecker := monitoring.NewHealthChecker()

	// The execution service is the first stop target; more services register
	// as the deployment grows.
	if err := emergencyCoord.Register("execution", emergency.StoppableFunc(
		func(ctx context.Context, event emergency.StopEvent) error {
			return execution.StopExecution(ctx)
		})); err != nil {
		log.Fatalf("Failed to register emergency service: %v", err)
	}

	service, err := monitor.NewService(monitor.Deps{
		Config:       manager,
		Store:        store,
		Engine:       engine,
		Calculator:   calculator,
		Aggregator:   aggregator,
		StressTester: tester,
		Alerts:       alertManager,
		Bus:          bus,
		Coordinator:  coordinator,
		Emergency:    emergencyCoord,
		Execution:    execution,
		Patterns:     patterns,
		Health:       health,
		MarketData:   marketData,
		HealthCheck:  healthChecker,
		Logger:       appLog,
	})
	if err != nil {
		log.Fatalf("Failed to wire safety monitor: %v", err)
	}

	// Observability endpoints
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler: monitoring.NewMetricsHandler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("metrics server failed: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Monitoring.HealthPort),
		Handler: healthMux,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("health server failed: %v", err)
		}
	}()

	if err := service.StartMonitoring(); err != nil {
		log.Fatalf("Failed to start monitoring: %v", err)
	}
	appLog.Info("safety monitor running, preset=%s interval=%v",
		cfg.Preset, cfg.MonitoringInterval)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLog.Info("shutdown signal received")
	service.StopMonitoring()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLog.Warning("metrics server shutdown: %v", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		appLog.Warning("health server shutdown: %v", err)
	}

	// Final snapshot for the operator
	report := service.GetSafetyReport(shutdownCtx)
	console := reporting.NewConsoleReporter()
	console.PrintSafetyReport(report)

	if dir := cfg.Reporting.Dir; dir != "" {
		stamp := time.Now().Format("20060102_150405")
		stressResults := tester.PerformStressTest()

		jsonPath := filepath.Join(dir, fmt.Sprintf("safety_report_%s.json", stamp))
		if err := reporting.NewJSONReporter().WriteSafetyReport(report, jsonPath); err != nil {
			appLog.Warning("json report export: %v", err)
		}

		excelPath := filepath.Join(dir, fmt.Sprintf("safety_report_%s.xlsx", stamp))
		if err := reporting.NewExcelReporter().WriteSafetyWorkbook(report, stressResults, excelPath); err != nil {
			appLog.Warning("excel report export: %v", err)
		} else {
			appLog.Info("safety reports written to %s", dir)
		}
	}

	appLog.Info("safety monitor stopped")
}
