package app

import (
	"log/slog"
	"net/http"

	"collisionguard.dev/internal/auth"
	"collisionguard.dev/internal/config"
	"collisionguard.dev/internal/geoindex"
	"collisionguard.dev/internal/history"
	"collisionguard.dev/internal/ingress"
	"collisionguard.dev/internal/report"
	"collisionguard.dev/internal/session"
	"collisionguard.dev/internal/telemetry"
)

// Application holds the shared dependencies for HTTP handlers, the
// websocket upgrade endpoint, and middleware.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Client    *http.Client
	Version   string
	Reporter  *report.Reporter
	GeoIndex  *geoindex.Index
	Telemetry *telemetry.Store
	History   *history.Buffer
	Sessions  *session.Registry
	Engine    *ingress.Engine
	Auth      *auth.Validator
}
