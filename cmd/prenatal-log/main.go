// cmd/prenatal-log/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mcp-prenatal-log/internal/aggregate"
	"mcp-prenatal-log/internal/cache"
	"mcp-prenatal-log/internal/config"
	"mcp-prenatal-log/internal/goals"
	"mcp-prenatal-log/internal/logger"
	"mcp-prenatal-log/internal/provider"
	"mcp-prenatal-log/internal/resolver"
	"mcp-prenatal-log/internal/server"
	"mcp-prenatal-log/internal/storage"
	"mcp-prenatal-log/internal/tracker"
)

const appVersion = "1.0.0"

var (
	port    = flag.Int("port", 0, "Port for HTTP transport (overrides HTTP_PORT)")
	host    = flag.String("host", "", "Host address (overrides HTTP_HOST)")
	address = flag.String("address", "", "Address (alias for host)")
	dbPath  = flag.String("db-path", "", "Database path (overrides DB_PATH)")
	version = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("mcp-prenatal-log version " + appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *address != "" {
		cfg.Host = *address
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "prenatal-log",
		Version: appVersion,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode flushes log and returns the process status for err.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("Server exited with error", zap.Error(err))
		code = 1
	}
	log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	var kv cache.KVStore = store
	if cfg.Cache.Backend == config.CacheRedis {
		client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Resolver.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		defer client.Close()
		kv = cache.NewRedisKVStore(client, cfg.Redis.Namespace)
	}

	sources, err := provider.Chain(cfg.Resolver.Sources, provider.Settings{
		Timeout:          cfg.Resolver.Timeout,
		RetryCount:       cfg.Resolver.Retries,
		OpenFoodFactsURL: cfg.OpenFoodFacts.BaseURL,
		USDAURL:          cfg.USDA.BaseURL,
		USDAKey:          cfg.USDA.APIKey,
		EdamamURL:        cfg.Edamam.BaseURL,
		EdamamAppID:      cfg.Edamam.AppID,
		EdamamAppKey:     cfg.Edamam.AppKey,
		EstimatorURL:     cfg.Estimator.URL,
		EstimatorKey:     cfg.Estimator.APIKey,
		EstimatorModel:   cfg.Estimator.Model,
	})
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	res := resolver.New(cache.NewResolutionCache(kv, log), sources, resolver.Options{
		TTL:           cfg.Cache.TTL,
		SourceTimeout: cfg.Resolver.Timeout,
	}, log)
	svc := tracker.New(store, res, goals.NewResolver(store, log), aggregate.NewEngine(store, log), tracker.Options{
		Location:    loc,
		ProgressCap: cfg.ProgressCap,
	}, log)

	srv := server.NewPrenatalLogServer(&server.Config{Host: cfg.Host, Port: cfg.Port}, svc, log)

	log.Info("Configuration loaded",
		zap.String("db_path", cfg.DBPath),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Strings("sources", res.Sources()),
		zap.String("timezone", loc.String()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
	}

	log.Info("Shutting down...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("Error during shutdown", zap.Error(err))
	}
	return runErr
}
