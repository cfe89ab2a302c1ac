package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenbitou/RoomAppt/internal/app"
	"github.com/chenbitou/RoomAppt/internal/clock"
	"github.com/chenbitou/RoomAppt/internal/config"
	"github.com/chenbitou/RoomAppt/internal/mq"
	"github.com/chenbitou/RoomAppt/internal/storage/postgres"
	transporthttp "github.com/chenbitou/RoomAppt/internal/transport/http"
	"github.com/chenbitou/RoomAppt/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.DemoMode {
		logger.Printf("WARN: demo mode enabled, window lookups ignore the requested day")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	reservationOpts := []app.ReservationServiceOption{
		app.WithLogger(logger),
		app.WithDemoWindows(cfg.DemoMode),
	}
	if cfg.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.AMQPURL, cfg.MQExchange)
		if err != nil {
			log.Fatalf("connect to broker: %v", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Printf("WARN: close publisher: %v", err)
			}
		}()
		reservationOpts = append(reservationOpts, app.WithEventPublisher(publisher))
		logger.Printf("publishing lifecycle events to exchange %s", cfg.MQExchange)
	}

	reservationRepo := postgres.NewReservationRepository(pool)
	reservationSvc := app.NewReservationService(reservationRepo, clock.NewSystem(), reservationOpts...)
	availabilityRepo := postgres.NewAvailabilityRepository(pool)
	availabilitySvc := app.NewAvailabilityService(availabilityRepo, app.WithDemoMode(cfg.DemoMode))
	catalogRepo := postgres.NewCatalogRepository(pool)
	catalogSvc := app.NewCatalogService(catalogRepo, clock.NewSystem())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/availability", transporthttp.HandleAvailability(availabilitySvc))
	mux.Handle("/bookings", transporthttp.HandleDayBookings(availabilitySvc))
	mux.Handle("/reservations", transporthttp.HandleCreateReservation(reservationSvc))
	mux.Handle("/reservations/", reservationRouter(reservationSvc))
	mux.Handle("/admin/resources", transporthttp.HandleAdminResources(catalogSvc))
	mux.Handle("/admin/resources/", transporthttp.HandleAdminDayWindows(catalogSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	log.Printf("api listening on %s", cfg.Addr())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

// reservationRouter dispatches the two shapes under /reservations/:
// "/reservations/{id}" and "/reservations/{id}/cancel".
func reservationRouter(svc *app.ReservationService) http.Handler {
	byID := transporthttp.HandleReservationByID(svc)
	cancel := transporthttp.HandleCancelReservation(svc)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			cancel.ServeHTTP(w, r)
			return
		}
		byID.ServeHTTP(w, r)
	})
}
