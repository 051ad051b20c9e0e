package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecopontos/ecopontos-backend/api/controllers"
	"github.com/ecopontos/ecopontos-backend/api/middleware"
	"github.com/ecopontos/ecopontos-backend/internal/ledger"
	"github.com/ecopontos/ecopontos-backend/pkg/config"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
	pkgredis "github.com/ecopontos/ecopontos-backend/pkg/redis"
)

type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DBPinger   controllers.Pinger
	Redis      *pkgredis.Client
	Accrual    ledger.AccrualService
	Redemption ledger.RedemptionService
	Query      ledger.QueryService
	Registry   *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	r.Use(middleware.CORS())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, redisPinger(deps.Redis)))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/points", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore(deps.Redis), logg))

		r.Post("/recycle", controllers.PointsRecycle(deps.Accrual, logg))
		r.Post("/redeem", controllers.PointsRedeem(deps.Redemption, logg))
		r.Post("/bonus", controllers.PointsBonus(deps.Accrual, logg))

		r.Get("/balance", controllers.PointsBalance(deps.Query, logg))
		r.Get("/transactions", controllers.PointsTransactions(deps.Query, logg))
		r.Get("/stats", controllers.PointsStats(deps.Query, logg))
		r.Get("/preview", controllers.PointsPreview(deps.Query, logg))
	})

	return r
}

// Typed-nil guards: a nil *Client stored in an interface would not compare equal
// to nil inside the middleware.
func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}

func redisPinger(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
