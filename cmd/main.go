package main

import (
	"context"
	"log/slog"
	"os"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	"marketplace/internal/config"
	"marketplace/internal/database/postgresql"
	"marketplace/internal/events"
	"marketplace/internal/storage"
	"marketplace/internal/store"
	"marketplace/internal/telemetry"
)

func main() {
	// JSON logs carrying trace ids when a span is active
	baseHandler := slog.NewJSONHandler(os.Stdout, nil)
	logger := slog.New(telemetry.NewTraceHandler(baseHandler))
	slog.SetDefault(logger)

	cfg := config.Load()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracer("marketplace-api", cfg.OTLPEndpoint)
		if err != nil {
			slog.Error("Failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	slog.Info("Connecting to Redis cache", "addr", cfg.RedisAddr)
	rdb, err := cache.NewRedisClient(cache.Config{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	slog.Info("Connecting to database")
	conn, err := postgresql.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	productStore := store.NewProductStore(conn, logger)

	// Schema failure is not fatal: the process stays up so /health can report
	// the degraded state instead of the container crash-looping.
	if err := productStore.EnsureSchema(context.Background()); err != nil {
		slog.Error("Continuing without schema", "error", err)
	}

	slog.Info("Connecting to object storage", "endpoint", cfg.S3Endpoint)
	provider, err := storage.NewMinioProvider(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL)
	if err != nil {
		slog.Error("Failed to initialize storage provider", "error", err)
		os.Exit(1)
	}

	slog.Info("Connecting to event bus", "endpoint", cfg.NATSEndpoint)
	eventBus, err := events.NewNATSBus(cfg.NATSEndpoint, logger)
	if err != nil {
		slog.Error("Failed to initialize event bus", "error", err)
		os.Exit(1)
	}

	gate, err := buildGate(cfg)
	if err != nil {
		slog.Error("Failed to initialize access gate", "error", err)
		os.Exit(1)
	}

	app := &application{
		config:   cfg,
		conn:     conn,
		store:    productStore,
		cache:    rdb,
		gate:     gate,
		storage:  provider,
		eventBus: eventBus,
		logger:   logger,
	}

	if err := app.run(app.mount()); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

// buildGate picks the Access Gate implementation for this deployment.
func buildGate(cfg *config.Config) (auth.Authorizer, error) {
	switch cfg.AuthMode {
	case "oidc":
		slog.Info("Access gate: OIDC", "issuer", cfg.OIDCIssuer)
		return auth.NewBearerAuthorizer(context.Background(), cfg.OIDCIssuer, cfg.OIDCClient, cfg.OIDCRole)
	case "none":
		slog.Warn("Access gate disabled; mutating routes are open")
		return auth.AllowAll{}, nil
	default:
		slog.Info("Access gate: shared admin token")
		return auth.NewStaticTokenAuthorizer(cfg.AdminToken), nil
	}
}
