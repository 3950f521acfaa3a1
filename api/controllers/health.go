package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/insights/api/responses"
	"github.com/angelmondragon/insights/pkg/config"
	pkgerrors "github.com/angelmondragon/insights/pkg/errors"
	"github.com/angelmondragon/insights/pkg/logger"
)

const (
	envHeader    = "X-Insights-Env"
	readyTimeout = 3 * time.Second
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(context.Context) error
}

// ReadinessCheck names one dependency checked by HealthReady.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency and reports 503 when any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		status := map[string]string{}
		var failed []string
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				status[check.Name] = "unavailable"
				failed = append(failed, check.Name)
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": check.Name, "error": err.Error()}), "health.dependency_unavailable")
				}
				continue
			}
			status[check.Name] = "ok"
		}

		if len(failed) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(map[string]any{"dependencies": failed})
			responses.WriteError(r.Context(), nil, w, err)
			return
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
