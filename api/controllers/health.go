package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ecopontos/ecopontos-backend/api/responses"
	"github.com/ecopontos/ecopontos-backend/pkg/config"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
)

// Pinger is any dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EcoPontos-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EcoPontos-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]Pinger{
			"db":    db,
			"redis": cache,
		}
		status := map[string]string{"status": "ready"}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				status[name] = "unavailable"
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			status[name] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
