package controllers

import (
	"context"
	"net/http"

	"github.com/Faith-Anthony/presently/api/responses"
	"github.com/Faith-Anthony/presently/pkg/config"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/logger"
)

// DependencyCheck probes a single backing service.
type DependencyCheck func(ctx context.Context) error

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Presently-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady runs each dependency check and reports ready only when all pass.
func HealthReady(cfg *config.Config, checks map[string]DependencyCheck, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Presently-Env", cfg.App.Env)
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
