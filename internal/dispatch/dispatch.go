// Package dispatch turns a predictor.Threat into the two recipient-
// relative wire payloads of spec.md §6/§4.7 and routes them to the
// origin and counterpart sessions. Grounded on the teacher's
// fire-and-log send pattern: a send failure is logged and swallowed,
// never propagated back up the pipeline.
package dispatch

import (
	"encoding/json"
	"log/slog"

	"collisionguard.dev/internal/metrics"
	"collisionguard.dev/internal/predictor"
	"collisionguard.dev/internal/session"
	"collisionguard.dev/internal/telemetry"
)

// pushEnvelope is the "push notification" wire shape of spec.md §6.
type pushEnvelope struct {
	Status string              `json:"status"`
	Data   predictor.Threat    `json:"data"`
}

// Dispatcher routes threat notifications to session channels.
type Dispatcher struct {
	registry *session.Registry
	logger   *slog.Logger
}

// New constructs a Dispatcher over the given session registry.
func New(registry *session.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch sends the origin-relative copy of threat to originCh
// unconditionally, and the counterpart-relative copy to whatever
// channel is currently bound to the counterpart id, if any. Send
// failures are logged and never returned: per spec.md §4.7/§7 they
// must not abort the pipeline.
func (d *Dispatcher) Dispatch(threat *predictor.Threat, origin telemetry.State, originCh session.Channel) {
	if threat == nil {
		return
	}

	// threat is already oriented from origin's point of view (origin
	// sees the counterpart as sourceVehicle/id/lat/lng).
	d.send(originCh, *threat, origin.UserID)

	mirrored := mirror(*threat, origin)
	counterpartID := threat.ID
	ch, ok := d.registry.Lookup(counterpartID)
	if !ok {
		return
	}
	d.sendCounterpart(ch, mirrored, counterpartID)
}

func (d *Dispatcher) send(ch session.Channel, threat predictor.Threat, recipientID string) {
	if ch == nil {
		return
	}
	payload, err := json.Marshal(pushEnvelope{Status: "threat", Data: threat})
	if err != nil {
		d.logger.Error("failed to marshal threat payload", "recipient", recipientID, "error", err)
		return
	}
	if err := ch.Send(payload); err != nil {
		d.logger.Debug("dropping threat notification, send failed", "recipient", recipientID, "error", err)
	}
}

// sendCounterpart is send plus the dispatch_failures_total metric,
// which is scoped to the counterpart leg: the origin always has a live
// channel (it just sent the message that triggered this dispatch), so
// only the counterpart leg can fail in a way worth alerting on.
func (d *Dispatcher) sendCounterpart(ch session.Channel, threat predictor.Threat, recipientID string) {
	if ch == nil {
		return
	}
	payload, err := json.Marshal(pushEnvelope{Status: "threat", Data: threat})
	if err != nil {
		d.logger.Error("failed to marshal threat payload", "recipient", recipientID, "error", err)
		metrics.DispatchFailuresTotal.Inc()
		return
	}
	if err := ch.Send(payload); err != nil {
		d.logger.Debug("dropping threat notification, send failed", "recipient", recipientID, "error", err)
		metrics.DispatchFailuresTotal.Inc()
	}
}

// mirror rebuilds the same threat from the counterpart's point of
// view: id/lat/lng/sourceVehicle now describe the origin vehicle.
// Type-specific numeric fields and the message carry over unchanged,
// since the underlying kinematic event is symmetric (spec.md §8
// "Symmetry").
func mirror(threat predictor.Threat, origin telemetry.State) predictor.Threat {
	mirrored := threat
	mirrored.ID = origin.UserID
	mirrored.Lat = origin.Lat
	mirrored.Lng = origin.Lon
	mirrored.SourceVehicle = origin.ReceivedAt.Summary()
	return mirrored
}
