package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"collisionguard.dev/internal/middleware"

	"github.com/julienschmidt/httprouter"
)

// Routes registers the three endpoints the service exposes:
//   - GET /v1/stream: upgrades to the persistent bidirectional
//     telemetry/threat channel.
//   - GET /v1/healthcheck: readiness snapshot.
//   - GET /metrics: Prometheus exposition, served from a short-lived
//     cache to absorb frequent scrapes.
//
// The whole router is wrapped with Sentry error capture and a
// standard set of security headers.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/stream", app.streamHandler)
	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.SentryMiddleware(router)
	return middleware.SecurityHeaders(handler)
}
