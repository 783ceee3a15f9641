package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/engine"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/events"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/handler"
	"github.com/Pepe2244/almoxarifado-digital/internal/stock/repository"
	"github.com/Pepe2244/almoxarifado-digital/pkg/config"
	"github.com/Pepe2244/almoxarifado-digital/pkg/database"
	"github.com/Pepe2244/almoxarifado-digital/pkg/httputil"
	"github.com/Pepe2244/almoxarifado-digital/pkg/logger"
	"github.com/Pepe2244/almoxarifado-digital/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("stock-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("stock-service", cfg.Server.Environment)
	log.Info().Msg("starting Stock Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewStockEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	itemRepo := repository.NewPostgresItemRepository(db)
	debitRepo := repository.NewPostgresDebitRepository(db)

	// Initialize engine
	eng := engine.New(itemRepo, debitRepo, log,
		engine.WithPublisher(publisher),
		engine.WithDebitPolicy(domain.DebitPolicy(cfg.Stock.DebitPolicy)),
		engine.WithHistoryLimit(cfg.Stock.HistoryLimit),
	)

	// Initialize handlers
	itemHandler := handler.NewItemHandler(eng, log)
	batchHandler := handler.NewBatchHandler(eng, log)
	movementHandler := handler.NewMovementHandler(eng, &cfg.Stock, log)
	allocationHandler := handler.NewAllocationHandler(eng, log)
	debitHandler := handler.NewDebitHandler(eng, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "stock-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Get("/{id}", itemHandler.Get)
			r.Post("/{id}/batches", batchHandler.Create)
			r.Delete("/{id}/batches/{batchID}", batchHandler.Delete)
			r.Post("/{id}/movements", movementHandler.Create)
			r.Post("/{id}/losses", movementHandler.Loss)
			r.Post("/{id}/adjustments", movementHandler.Adjust)
			r.Post("/{id}/replace-expired", movementHandler.ReplaceExpired)
		})

		r.Route("/allocations", func(r chi.Router) {
			r.Post("/{id}/return", allocationHandler.Return)
			r.Post("/{id}/loss", allocationHandler.Loss)
		})

		r.Route("/debits", func(r chi.Router) {
			r.Get("/", debitHandler.List)
			r.Post("/{id}/settle", debitHandler.Settle)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
