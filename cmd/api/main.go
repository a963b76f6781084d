package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Faith-Anthony/presently/api/controllers"
	"github.com/Faith-Anthony/presently/api/routes"
	"github.com/Faith-Anthony/presently/internal/auth"
	"github.com/Faith-Anthony/presently/internal/claims"
	"github.com/Faith-Anthony/presently/internal/reservations"
	"github.com/Faith-Anthony/presently/internal/snapshots"
	"github.com/Faith-Anthony/presently/internal/users"
	"github.com/Faith-Anthony/presently/internal/wishlists"
	"github.com/Faith-Anthony/presently/pkg/auth/session"
	"github.com/Faith-Anthony/presently/pkg/config"
	"github.com/Faith-Anthony/presently/pkg/db"
	"github.com/Faith-Anthony/presently/pkg/logger"
	"github.com/Faith-Anthony/presently/pkg/metrics"
	"github.com/Faith-Anthony/presently/pkg/migrate"
	"github.com/Faith-Anthony/presently/pkg/outbox"
	"github.com/Faith-Anthony/presently/pkg/redis"
)

const shutdownGrace = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	reservationMetrics := metrics.NewReservationMetrics(prometheus.DefaultRegisterer)

	// The hub needs the reservation service to load snapshots, and the
	// services need the hub to announce changes. The indirection below breaks
	// the cycle; hub is assigned before the server takes traffic.
	var hub *snapshots.Hub
	onChange := func(wishlistID uuid.UUID) {
		if hub != nil {
			hub.Publish(context.Background(), wishlistID)
		}
	}

	reservationService, err := reservations.NewService(reservations.ServiceParams{
		DB:       dbClient,
		Outbox:   outboxService,
		Metrics:  reservationMetrics,
		OnChange: onChange,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	// Streamed snapshots are anonymous; SSE subscribers get the plain guest
	// view regardless of who they are.
	hub = snapshots.NewHub(func(ctx context.Context, wishlistID uuid.UUID) (any, error) {
		return reservationService.PublicView(ctx, wishlistID, reservations.Viewer{})
	}, logg, reservationMetrics)

	wishlistService, err := wishlists.NewService(wishlists.ServiceParams{
		DB:       dbClient,
		Plan:     cfg.Plan,
		Share:    cfg.Share,
		Outbox:   outboxService,
		Metrics:  reservationMetrics,
		OnChange: onChange,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		Outbox:         outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	claimLedger, err := claims.NewLedger(redisClient, cfg.Claims.LedgerTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create claim ledger", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(routes.Deps{
		Config:             cfg,
		Logger:             logg,
		Redis:              redisClient,
		SessionManager:     sessionManager,
		AuthService:        authService,
		RegisterService:    registerService,
		WishlistService:    wishlistService,
		ReservationService: reservationService,
		ClaimLedger:        claimLedger,
		SnapshotHub:        hub,
		ReadyChecks: map[string]controllers.DependencyCheck{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
		},
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
		// Request contexts derive from the signal context so long-lived
		// snapshot streams unwind when the process is told to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
