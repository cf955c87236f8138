package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freight-service/internal/cache"
	"freight-service/internal/config"
	"freight-service/internal/distance"
	"freight-service/internal/handlers"
	"freight-service/internal/kinesis"
	"freight-service/internal/metrics"
	"freight-service/internal/service"
	"freight-service/internal/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	kinesisService "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/gorilla/mux"
)

// stores groups the storage backends selected by configuration
type stores struct {
	trucks storage.TruckStorage
	loads  storage.LoadStorage
	fuel   storage.FuelStorage
	close  func() error
}

func main() {
	cfg, err := config.Load(os.Getenv("FREIGHT_CONFIG_FILE"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// AWS config is only loaded when something needs it
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &c
		return c, nil
	}

	st, err := openStorage(cfg.Storage, loadAWS)
	if err != nil {
		slog.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}()

	// Initialize services
	truckService := service.NewTruckService(st.trucks, st.loads)
	loadService := service.NewLoadService(st.loads, st.trucks)
	fuelService := service.NewFuelService(st.fuel, st.trucks)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector()
		if err != nil {
			slog.Error("Failed to create metrics collector", "error", err)
			os.Exit(1)
		}
		loadService.SetMetrics(collector)
	}

	if cfg.Cache.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL)
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("Redis unavailable, calculations will not be cached", "addr", cfg.Cache.RedisAddr, "error", err)
			redisCache.Close()
		} else {
			defer redisCache.Close()
			loadService.SetCache(redisCache)
			slog.Info("Calculation cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
		}
	}

	if cfg.Distance.BaseURL != "" {
		loadService.SetEstimator(distance.NewClient(cfg.Distance.BaseURL, cfg.Distance.Timeout, cfg.Distance.RequestsPerSecond))
		slog.Info("Deadhead estimation enabled", "routing_service", cfg.Distance.BaseURL)
	}

	// Initialize Kinesis streamer if stream name is provided
	if streamName := cfg.Kinesis.LoadEventsStream; streamName != "" {
		if c, err := loadAWS(); err != nil {
			slog.Warn("Failed to load AWS config for Kinesis", "error", err)
		} else {
			loadService.SetPublisher(kinesis.NewStreamer(kinesisService.NewFromConfig(c), streamName))
			slog.Info("Kinesis load event streaming enabled", "stream", streamName)
		}
	}

	// Start Kinesis consumer if stream name is provided
	var consumer *kinesis.Consumer
	if streamName := cfg.Kinesis.FuelPurchasesStream; streamName != "" {
		if c, err := loadAWS(); err != nil {
			slog.Warn("Failed to load AWS config for Kinesis", "error", err)
		} else {
			consumer = kinesis.NewConsumer(kinesisService.NewFromConfig(c), streamName, fuelService, cfg.Kinesis.PollInterval)
			if err := consumer.Start(ctx); err != nil {
				slog.Error("Failed to start fuel purchase consumer", "error", err)
				consumer = nil
			}
		}
	}

	// Initialize HTTP handlers
	httpHandler := handlers.NewHTTPHandler(truckService, loadService, fuelService)

	// Setup routes
	router := mux.NewRouter()

	// Use path prefix if running behind load balancer
	if cfg.Server.PathPrefix != "" {
		httpHandler.RegisterRoutes(router.PathPrefix(cfg.Server.PathPrefix).Subrouter())
	} else {
		httpHandler.RegisterRoutes(router)
	}

	if collector != nil {
		router.Handle(cfg.Metrics.Path, collector.Handler()).Methods("GET")
		router.Use(handlers.MetricsMiddleware(collector))
	}

	// CORS wraps the router so preflight requests reach it for every path
	rateLimiter := handlers.NewRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.CORSMiddleware(rateLimiter.Middleware(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Freight Service starting", "port", cfg.Server.Port, "storage", cfg.Storage.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		slog.Error("Freight Service failed to start", "error", err)
		cancel()
		os.Exit(1)
	case <-quit:
		slog.Info("Freight Service shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during server shutdown", "error", err)
	}

	cancel()
	if consumer != nil {
		consumer.Wait()
	}

	slog.Info("Freight Service stopped")
}

func setupLogger(cfg config.LoggingConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStorage initializes storage based on configuration
func openStorage(cfg config.StorageConfig, loadAWS func() (aws.Config, error)) (*stores, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case "dynamodb":
		c, err := loadAWS()
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(c)
		slog.Info("Using DynamoDB storage", "trucks_table", cfg.TrucksTable, "loads_table", cfg.LoadsTable, "fuel_table", cfg.FuelTable)
		return &stores{
			trucks: storage.NewDynamoDBTruckStorage(client, cfg.TrucksTable),
			loads:  storage.NewDynamoDBLoadStorage(client, cfg.LoadsTable),
			fuel:   storage.NewDynamoDBFuelStorage(client, cfg.FuelTable),
			close:  noop,
		}, nil

	case "postgres", "sqlite":
		var sqlStorage *storage.SQLStorage
		var err error
		if cfg.Type == "postgres" {
			sqlStorage, err = storage.OpenPostgres(cfg.DatabaseURL)
		} else {
			sqlStorage, err = storage.OpenSQLite(cfg.SQLitePath)
		}
		if err != nil {
			return nil, err
		}
		slog.Info("Using SQL storage", "driver", cfg.Type)
		return &stores{
			trucks: sqlStorage,
			loads:  sqlStorage,
			fuel:   sqlStorage,
			close:  sqlStorage.Close,
		}, nil

	default:
		slog.Info("Using in-memory storage")
		return &stores{
			trucks: storage.NewMemoryTruckStorage(),
			loads:  storage.NewMemoryLoadStorage(),
			fuel:   storage.NewMemoryFuelStorage(),
			close:  noop,
		}, nil
	}
}
