package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace/internal/auth"
	"marketplace/internal/cache"
	"marketplace/internal/config"
	"marketplace/internal/events"
	"marketplace/internal/handlers/images"
	"marketplace/internal/handlers/products"
	"marketplace/internal/idempotency"
	"marketplace/internal/json"
	"marketplace/internal/storage"
	"marketplace/internal/store"
)

type application struct {
	config   *config.Config
	conn     *pgxpool.Pool
	store    *store.ProductStore
	cache    *cache.RedisClient
	gate     auth.Authorizer
	storage  storage.Provider
	eventBus events.Bus
	logger   *slog.Logger
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.config.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", auth.TokenHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	slog.Info("Allowed origins", "origin", app.config.AllowedOrigin)

	r.Use(middleware.Timeout(app.config.RequestTimeout))

	r.Get("/health", app.health)

	idempotencyStore := idempotency.NewRedisStore(app.cache)

	eventHandler := events.NewEventHandler(app.eventBus, events.NewEventConfig(), app.logger)
	imagesBucket := storage.Bucket(app.config.ImagesBucket)

	productsService := products.NewProductsService(app.store, app.logger, eventHandler, app.storage, imagesBucket, app.config.PublicFilesURL)
	productsHandler := products.NewProductsHandler(productsService)

	imageService := images.NewImageService(app.storage, imagesBucket, app.config.PublicFilesURL)
	imageHandler := images.NewImageHandler(imageService)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Public reads
			r.Use(middleware.Recoverer)

			r.Get("/products", productsHandler.ListProducts)
			r.Get("/products/{id}", productsHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			// Create is public, but retries should be safe
			r.Use(middleware.Recoverer)
			r.Use(idempotency.Middleware(idempotencyStore))

			r.Post("/products", productsHandler.CreateProduct)
		})

		r.Group(func(r chi.Router) {
			// Gated mutations
			r.Use(middleware.Recoverer)
			r.Use(idempotency.Middleware(idempotencyStore))
			r.Use(auth.Middleware(app.gate))

			r.Put("/products/{id}", productsHandler.UpdateProduct)
			r.Delete("/products/{id}", productsHandler.DeleteProduct)
			r.Post("/images/presign", imageHandler.PresignUpload)
		})
	})

	return r
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Ready     bool      `json:"ready"`
	Database  string    `json:"database"`
}

// health always answers 200 so the service stays inspectable; degraded state
// shows up in ready/database rather than as a refused connection.
func (app *application) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if err := app.store.Ping(ctx); err != nil {
		database = "unreachable"
	}

	ready := app.store.Ready() && database == "ok"
	status := "ok"
	if !ready {
		status = "degraded"
	}

	json.Write(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Ready:     ready,
		Database:  database,
	})
}

func (app *application) run(h http.Handler) error {
	svr := &http.Server{
		Addr:         app.config.Addr,
		Handler:      h,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute * 1,
	}

	slog.Info("Starting server on " + app.config.Addr)
	go func() {
		if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Listen: %s\n", err)
		}
	}()

	// Wait for Interrupt Signal (Ctrl+C or Docker Stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		log.Fatal("Server Forced to Shutdown:", err)
		return err
	}

	// Drain lets in-flight publishes finish before the connection goes away.
	if err := app.eventBus.Drain(); err != nil {
		log.Fatal("NATS Drain failed:", err)
		return err
	}

	app.conn.Close()

	if err := app.cache.Close(); err != nil {
		log.Fatal("Redis Close failed:", err)
		return err
	}

	log.Println("Server Exited Properly")
	return nil
}
