package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gosha22008/orders-backend/api/controllers"
	"github.com/gosha22008/orders-backend/api/middleware"
	"github.com/gosha22008/orders-backend/internal/auth"
	"github.com/gosha22008/orders-backend/internal/basket"
	"github.com/gosha22008/orders-backend/internal/catalog"
	"github.com/gosha22008/orders-backend/internal/contacts"
	"github.com/gosha22008/orders-backend/internal/orders"
	"github.com/gosha22008/orders-backend/internal/users"
	"github.com/gosha22008/orders-backend/pkg/auth/session"
	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/enums"
	"github.com/gosha22008/orders-backend/pkg/logger"
	pkgredis "github.com/gosha22008/orders-backend/pkg/redis"
)

// RedisStore is the subset of the redis client the HTTP layer uses for
// rate limits, idempotency and readiness.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Dependencies carries everything the router hands to controllers. Nil
// services are tolerated; their endpoints answer with an internal error.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer

	Auth     auth.Service
	Register auth.RegisterService
	Users    users.Service
	Contacts contacts.Service
	Catalog  catalog.Service
	Basket   basket.Service
	Orders   orders.Service
	Imports  controllers.ImportJobs
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
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

	// middleware treats a nil store as disabled
	var (
		rateStore        middleware.RateLimiterStore
		windowStore      middleware.FixedWindowStore
		idempotencyStore pkgredis.IdempotencyStore
		redisPinger      controllers.Pinger
	)
	if deps.Redis != nil {
		rateStore = deps.Redis
		windowStore = deps.Redis
		idempotencyStore = deps.Redis
		redisPinger = deps.Redis
	}

	importThrottle := middleware.AccountRateLimit("import", cfg.Import.RateLimit, cfg.Import.RateLimitWindow, windowStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    redisPinger,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.CategoriesList(deps.Catalog, logg))
		r.Get("/shops", controllers.ShopsList(deps.Catalog, logg))
		r.Get("/products", controllers.ProductsSearch(deps.Catalog, logg))

		r.Route("/user", func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(registerPolicy, rateStore, logg),
				middleware.Idempotency(idempotencyStore, cfg.Import.MaxFeedBytes, logg),
			).Post("/register", controllers.UserRegister(deps.Register, logg))
			r.Post("/register/confirm", controllers.UserConfirmEmail(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.UserLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.UserRefresh(deps.Auth, logg))
			r.Post("/password_reset", controllers.UserPasswordReset(deps.Auth, logg))
			r.Post("/password_reset/confirm", controllers.UserPasswordResetConfirm(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
				r.Post("/logout", controllers.UserLogout(deps.Auth, logg))
				r.Get("/account", controllers.AccountGet(deps.Users, logg))
				r.Patch("/account", controllers.AccountUpdate(deps.Users, logg))

				r.Get("/contact", controllers.ContactList(deps.Contacts, logg))
				r.Post("/contact", controllers.ContactCreate(deps.Contacts, logg))
				r.Put("/contact", controllers.ContactUpdate(deps.Contacts, logg))
				r.Delete("/contact", controllers.ContactDelete(deps.Contacts, logg))
				r.Put("/contact/{contactId}", controllers.ContactUpdate(deps.Contacts, logg))
				r.Delete("/contact/{contactId}", controllers.ContactDelete(deps.Contacts, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			// scoped per user, so it has to run after Auth
			r.Use(middleware.Idempotency(idempotencyStore, cfg.Import.MaxFeedBytes, logg))

			r.Route("/basket", func(r chi.Router) {
				r.Get("/", controllers.BasketView(deps.Basket, logg))
				r.Post("/", controllers.BasketAdd(deps.Basket, logg))
				r.Put("/", controllers.BasketUpdate(deps.Basket, logg))
				r.Delete("/", controllers.BasketRemove(deps.Basket, logg))
			})

			r.Route("/order", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(deps.Orders, logg))
				r.Post("/", controllers.OrderPlace(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(deps.Orders, logg))
			})

			r.Route("/partner", func(r chi.Router) {
				r.Use(middleware.RequireAccountType(logg, enums.AccountTypeShop))
				r.With(importThrottle).Post("/update", controllers.PartnerUpdate(deps.Imports, cfg.Import.MaxFeedBytes, logg))
				r.Get("/update/{jobId}", controllers.PartnerImportStatus(deps.Imports, logg))
				r.Get("/state", controllers.PartnerStateGet(deps.Catalog, logg))
				r.Post("/state", controllers.PartnerStateSet(deps.Catalog, logg))
				r.Get("/orders", controllers.PartnerOrders(deps.Orders, logg))
			})
		})
	})

	return r
}
