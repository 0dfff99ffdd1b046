package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/acquisition/apiprobe"
	"github.com/cortexmap/cortex/internal/acquisition/browser"
	"github.com/cortexmap/cortex/internal/acquisition/fetch"
	"github.com/cortexmap/cortex/internal/common/config"
	"github.com/cortexmap/cortex/internal/common/logger"
	"github.com/cortexmap/cortex/internal/common/metricsserver"
	"github.com/cortexmap/cortex/internal/mapcache"
	"github.com/cortexmap/cortex/internal/mapper"
	"github.com/cortexmap/cortex/internal/metrics"
	"github.com/cortexmap/cortex/internal/service"
)

const (
	mapCacheMaxBytes = 512 << 20 // 512 MiB of sealed Maps kept warm
	mapCacheMaxAge   = 6 * time.Hour
)

func main() {
	configPath := flag.String("c", "", "path to configuration file (optional; env vars and defaults apply if absent)")
	testMode := flag.Bool("t", false, "validate configuration and exit")
	flag.Parse()

	initialLogger, err := logger.NewDefaultLogger()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	cfg, err := config.Load(*configPath, initialLogger.Logger)
	if err != nil {
		initialLogger.Fatal("failed to load config", zap.Error(err))
	}

	if *testMode {
		fmt.Printf("config OK: socket=%s data_dir=%s max_nodes=%d timeout_ms=%d\n",
			cfg.SocketPath, cfg.DataDir, cfg.MaxNodes, cfg.TimeoutMS)
		os.Exit(0)
	}

	dynamicLogger, err := logger.NewLoggerWithStartupOverride(cfg.Log)
	if err != nil {
		initialLogger.Fatal("failed to create configured logger", zap.Error(err))
	}
	defer dynamicLogger.Sync()

	appLogger := dynamicLogger.With(zap.String("component", "cortexd"))
	appLogger.Info("starting cortexd", zap.String("socket", cfg.SocketPath), zap.String("data_dir", cfg.DataDir))

	metricsCollector := metrics.New(cfg.Metrics.Namespace, appLogger)
	metricsSrv, err := metricsserver.StartMetricsServer(cfg.Metrics.Enabled, cfg.Metrics.Listen, cfg.Metrics.Path, metricsCollector, appLogger)
	if err != nil {
		appLogger.Fatal("failed to start metrics server", zap.Error(err))
	}

	fetcher := fetch.New(fetch.Config{
		RespectRobots:         cfg.RespectRobots,
		DisableSSRFProtection: cfg.DisableSSRFProtection,
		InsecureSkipVerify:    cfg.InsecureSkipVerify,
	}, appLogger, fetch.AllowAll{})
	prober := apiprobe.New(appLogger)

	browserPool := browser.New(browser.Config{ChromiumPath: cfg.ChromiumPath}, appLogger)

	mapperCfg := mapper.Config{
		MaxNodes:      cfg.MaxNodes,
		MaxTimeMS:     cfg.TimeoutMS,
		RespectRobots: cfg.RespectRobots,
	}
	m := mapper.New(mapperCfg, fetcher, prober, browserPool, appLogger)
	m.SetMetrics(metricsCollector)

	cache, err := mapcache.New(mapCacheMaxBytes, mapCacheMaxAge, appLogger)
	if err != nil {
		appLogger.Fatal("failed to create map cache", zap.Error(err))
	}

	svc := service.New(m, cache, appLogger)
	svc.SetMetrics(metricsCollector)

	listener, err := service.Listen(svc, cfg.SocketPath, appLogger)
	if err != nil {
		appLogger.Fatal("failed to bind service socket", zap.Error(err))
	}

	serveCtx, cancelServe := context.WithCancel(context.Background())
	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- listener.Serve(serveCtx)
	}()

	appLogger.Info("cortexd started", zap.String("socket", cfg.SocketPath))
	dynamicLogger.SwitchToConfiguredLevel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		dynamicLogger.EnsureInfoLevelForShutdown()
		appLogger.Info("shutting down cortexd...")
	case err := <-serveErrors:
		dynamicLogger.EnsureInfoLevelForShutdown()
		appLogger.Error("service listener stopped unexpectedly", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cancelServe()
	if err := listener.Close(); err != nil {
		appLogger.Error("error closing service listener", zap.Error(err))
	}

	if metricsSrv != nil {
		appLogger.Info("shutting down metrics server")
		if err := metricsSrv.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	appLogger.Info("shutting down browser pool")
	browserPool.Shutdown()
	appLogger.Info("cortexd stopped")
}
