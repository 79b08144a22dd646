package app

import (
	"encoding/json"
	"net/http"
)

// HealthStatus is the JSON response returned by /v1/healthcheck. The
// application is considered ready once its geo index, telemetry store,
// session registry and ingress engine are all in place.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Ready       bool   `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ready := app.GeoIndex != nil && app.Telemetry != nil && app.Sessions != nil && app.Engine != nil

	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		Ready:       ready,
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(status)
}
