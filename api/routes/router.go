package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Faith-Anthony/presently/api/controllers"
	"github.com/Faith-Anthony/presently/api/middleware"
	"github.com/Faith-Anthony/presently/internal/auth"
	"github.com/Faith-Anthony/presently/internal/claims"
	"github.com/Faith-Anthony/presently/internal/reservations"
	"github.com/Faith-Anthony/presently/internal/snapshots"
	"github.com/Faith-Anthony/presently/internal/wishlists"
	"github.com/Faith-Anthony/presently/pkg/auth/session"
	"github.com/Faith-Anthony/presently/pkg/config"
	"github.com/Faith-Anthony/presently/pkg/logger"
	"github.com/Faith-Anthony/presently/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config             *config.Config
	Logger             *logger.Logger
	Redis              *redis.Client
	SessionManager     session.AccessSessionChecker
	AuthService        auth.Service
	RegisterService    auth.RegisterService
	WishlistService    wishlists.Service
	ReservationService reservations.Service
	ClaimLedger        *claims.Ledger
	SnapshotHub        *snapshots.Hub
	ReadyChecks        map[string]controllers.DependencyCheck
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Share),
		middleware.DeviceContext(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	reservePolicy := middleware.NewAuthRateLimitPolicy(
		"reserve",
		cfg.ReserveRateLimit.Window,
		cfg.ReserveRateLimit.IPLimit,
		0,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.ReadyChecks, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	// guest surface, no account required; a bearer token still identifies
	// owners so their self-reserve attempts can be refused
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Route("/wishlists/{wishlistID}", func(r chi.Router) {
			r.Get("/", controllers.PublicWishlist(deps.ReservationService, deps.ClaimLedger, logg))
			r.Get("/stream", controllers.PublicWishlistStream(deps.SnapshotHub, logg))
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Use(middleware.AuthRateLimit(reservePolicy, deps.Redis, logg))
				r.Post("/reserve", controllers.PublicReserve(deps.ReservationService, deps.ClaimLedger, logg))
				r.Post("/unreserve", controllers.PublicUnreserve(deps.ReservationService, deps.ClaimLedger, logg))
			})
		})
	})

	r.With(middleware.RequireDevice(logg)).Get("/api/v1/claims", controllers.PublicClaims(deps.ClaimLedger, logg))

	// owner surface
	r.Route("/api/v1/wishlists", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/", controllers.WishlistCreate(deps.WishlistService, logg))
		r.Get("/", controllers.WishlistList(deps.WishlistService, logg))
		r.Route("/{wishlistID}", func(r chi.Router) {
			r.Get("/", controllers.WishlistGet(deps.WishlistService, logg))
			r.Patch("/", controllers.WishlistUpdate(deps.WishlistService, logg))
			r.Delete("/", controllers.WishlistDelete(deps.WishlistService, logg))
			r.Get("/share-links", controllers.WishlistShareLinks(deps.WishlistService, logg))
			r.Post("/items", controllers.WishlistAddItem(deps.WishlistService, logg))
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Patch("/", controllers.WishlistUpdateItem(deps.WishlistService, logg))
				r.Delete("/", controllers.WishlistRemoveItem(deps.WishlistService, logg))
				r.Post("/release", controllers.WishlistReleaseItem(deps.WishlistService, logg))
			})
		})
	})

	return r
}
