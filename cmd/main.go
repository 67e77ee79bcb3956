package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"wineclass/config"
	qhttp "wineclass/http"
	"wineclass/inference"
	"wineclass/logging"
	"wineclass/ml"
	"wineclass/monitoring"
	"wineclass/wine"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Look for config in root even if run from cmd/
	path := *configPath
	if path == "config.yaml" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join("..", "config.yaml")
		}
	}

	// 1. Load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Adjust model path if config was found one level up
	if !filepath.IsAbs(cfg.Model.Path) && path == filepath.Join("..", "config.yaml") {
		cfg.Model.Path = filepath.Join("..", cfg.Model.Path)
	}

	// 2. Build logger
	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 3. Load the model. The server must not listen without it.
	ensemble, err := ml.LoadEnsemble(cfg.Model.Path, wine.FeatureNames())
	if err != nil {
		logger.Fatal("model load failed", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	info := ensemble.Info()
	logger.Info("model loaded",
		zap.String("path", info.Path),
		zap.Int("trees", info.TreeCount),
		zap.Ints("classes", info.Classes),
	)

	// 4. Monitoring
	collector := monitoring.NewCollector()
	hub := monitoring.NewHub(logger)
	go hub.Run()
	broadcaster := monitoring.NewBroadcaster(hub, collector, cfg.Monitor.StreamInterval(), logger)
	go broadcaster.Run()

	// 5. Inference service
	service, err := inference.NewService(ensemble, cfg.Cache.Size, collector)
	if err != nil {
		logger.Fatal("inference service init failed", zap.Error(err))
	}

	// 6. Wire handlers before the listener comes up
	qhttp.SetLogger(logger)
	qhttp.SetModel(ensemble)
	qhttp.SetService(service)
	qhttp.SetMetricsCollector(collector)
	qhttp.SetMetricsHub(hub)

	// 7. Start HTTP server
	server := qhttp.NewServer(cfg.Server, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 8. Watch config for log level changes. The model is never reloaded;
	// replacing the artifact requires a restart.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := config.Watch(ctx, path, logger, func(next *config.Config) {
			if err := level.UnmarshalText([]byte(next.Log.Level)); err != nil {
				logger.Warn("ignoring invalid log level", zap.String("level", next.Log.Level))
				return
			}
			logger.Info("log level updated", zap.String("level", next.Log.Level))
		})
		if err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancel()
	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	broadcaster.Stop()
	hub.Stop()

	logger.Info("exited")
}
