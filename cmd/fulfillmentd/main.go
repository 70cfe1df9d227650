package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	catalogapp "github.com/rasamarket/fulfillment/internal/catalog/app"
	catalogpg "github.com/rasamarket/fulfillment/internal/catalog/infra/postgres"
	"github.com/rasamarket/fulfillment/internal/demand"
	"github.com/rasamarket/fulfillment/internal/fulfillment"
	orderapp "github.com/rasamarket/fulfillment/internal/order/app"
	orderpg "github.com/rasamarket/fulfillment/internal/order/infra/postgres"
	"github.com/rasamarket/fulfillment/internal/reservation"
	routingapp "github.com/rasamarket/fulfillment/internal/routing/app"
	routingadapter "github.com/rasamarket/fulfillment/internal/routing/infra/adapter"

	"github.com/rasamarket/fulfillment/pkg/config"
	"github.com/rasamarket/fulfillment/pkg/logger"
	"github.com/rasamarket/fulfillment/pkg/postgres"
	"github.com/rasamarket/fulfillment/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "fulfillmentd", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	db := mustDB(log, cfg)
	defer db.Close()

	clk := clock.New()

	// Catalog
	menuRepo := catalogpg.NewMenuRepo(db)
	catalogSvc := catalogapp.NewService(menuRepo)

	// Reservation tracker
	tracker := reservation.NewTracker(reservation.Config{
		TTL:           cfg.Engine.ReservationTTL,
		SweepInterval: cfg.Engine.SweepInterval,
	}, clk, log)
	tracker.Start()
	defer tracker.Stop()

	// Router
	router := routingapp.NewService(
		routingadapter.NewCatalogServiceReader(catalogSvc),
		routingapp.Config{
			MultiFulfillerMode:        cfg.Engine.MultiFulfillerMode,
			MultiFulfillerCartAllowed: cfg.Engine.MultiFulfillerCartAllowed,
			FreeDeliveryThreshold:     cfg.Engine.FreeDeliveryThreshold,
			StandardDeliveryFee:       cfg.Engine.StandardDeliveryFee,
			BasePrepTime:              cfg.Engine.BasePrepTime,
		},
		clk,
		10,
	)

	// Orders
	orderRepo := orderpg.NewOrderRepo(db)
	orderSvc := orderapp.NewService(orderRepo, tracker, cfg.Engine.CommitTimeout, log)

	// Demand
	calc := demand.NewCalculator(tracker, orderRepo, clk)

	engine := fulfillment.NewEngine(tracker, router, orderSvc, calc, catalogSvc)

	// The transactional surface (track/route/commit) is consumed as a
	// library by the request-handler layer; only the read-only
	// informational endpoints are served here.
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /items/{id}/demand", func(w http.ResponseWriter, r *http.Request) {
		pressure, err := engine.DemandPressure(r.Context(), r.PathValue("id"))
		writeJSON(w, pressure, err)
	})
	mux.HandleFunc("GET /items/{id}/availability", func(w http.ResponseWriter, r *http.Request) {
		available, err := engine.AdvisoryAvailableStock(r.Context(), r.PathValue("id"))
		writeJSON(w, map[string]any{"available": available}, err)
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.Any("err", err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.Any("err", err))
	}

	wg.Wait()
	log.Info("bye")
}

func writeJSON(w http.ResponseWriter, v any, err error) {
	if err != nil {
		if errors.Is(err, catalogapp.ErrNotFound) || errors.Is(err, catalogapp.ErrInvalidInput) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		slog.Default().Error("encode response", slog.Any("err", encErr))
	}
}

func mustDB(log *slog.Logger, cfg config.Config) *sql.DB {
	db, err := postgres.Open(postgres.Config{
		Host: cfg.Postgres.Host,
		Port: cfg.Postgres.Port,
		User: cfg.Postgres.User,
		Pass: cfg.Postgres.Pass,
		DB:   cfg.Postgres.DB,
	})
	if err != nil {
		log.Error("db open failed", slog.Any("err", err))
		os.Exit(1)
	}
	return db
}
