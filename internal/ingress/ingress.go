// Package ingress is the per-message pipeline of spec.md §4.8: binding
// the geo index, telemetry store, history buffer, session registry,
// predictor bank, and dispatcher together. Grounded on the teacher's
// worker-pool-free request model, generalized with a bounded pool of
// goroutines (spec.md §5) so cross-session work runs concurrently
// while each session's own messages still process strictly in order.
package ingress

import (
	"encoding/json"
	"log/slog"
	"math"
	"runtime"
	"time"

	"collisionguard.dev/internal/config"
	"collisionguard.dev/internal/dispatch"
	"collisionguard.dev/internal/geoindex"
	"collisionguard.dev/internal/history"
	"collisionguard.dev/internal/metrics"
	"collisionguard.dev/internal/predictor"
	"collisionguard.dev/internal/session"
	"collisionguard.dev/internal/telemetry"
)

const maxNeighbors = 50

// Engine wires every core component into the §4.8 pipeline and exposes
// the single entry point a transport (internal/wsconn) calls per
// inbound frame.
type Engine struct {
	cfg        *config.Config
	geo        *geoindex.Index
	store      *telemetry.Store
	history    *history.Buffer
	sessions   *session.Registry
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	work chan func()
}

// New constructs an Engine and starts its bounded worker pool. A
// poolSize <= 0 defaults to runtime.NumCPU().
func New(
	cfg *config.Config,
	geo *geoindex.Index,
	store *telemetry.Store,
	hist *history.Buffer,
	sessions *session.Registry,
	dispatcher *dispatch.Dispatcher,
	logger *slog.Logger,
	poolSize int,
) *Engine {
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	e := &Engine{
		cfg:        cfg,
		geo:        geo,
		store:      store,
		history:    hist,
		sessions:   sessions,
		dispatcher: dispatcher,
		logger:     logger,
		work:       make(chan func()),
	}
	for i := 0; i < poolSize; i++ {
		go e.runWorker()
	}
	return e
}

func (e *Engine) runWorker() {
	for fn := range e.work {
		fn()
	}
}

// Channel is whatever the transport uses to talk back to one session;
// internal/wsconn.Conn satisfies it.
type Channel = session.Channel

// HandleMessage submits one inbound frame to the worker pool and
// blocks until its pipeline completes, so the caller (one read loop
// per session) preserves per-session ordering while distinct sessions
// run concurrently (spec.md §5).
func (e *Engine) HandleMessage(ch Channel, payload []byte) {
	done := make(chan struct{})
	e.work <- func() {
		defer close(done)
		e.process(ch, payload)
	}
	<-done
}

// HandleDisconnect removes every session binding pointing at ch once
// its transport closes, so the registry doesn't accumulate stale
// channels for vehicles that stopped reconnecting.
func (e *Engine) HandleDisconnect(ch Channel) {
	e.sessions.RemoveChannel(ch)
	metrics.OpenSessions.Set(float64(e.sessions.Count()))
}

type ackResponse struct {
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp,omitempty"`
	Threats   []predictor.Threat  `json:"threats,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}

func (e *Engine) respond(ch Channel, resp ackResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		e.logger.Error("failed to marshal ack response", "error", err)
		return
	}
	if err := ch.Send(data); err != nil {
		e.logger.Debug("failed to send ack to origin", "error", err)
	}
}

func (e *Engine) process(ch Channel, payload []byte) {
	start := time.Now()
	defer func() {
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	// Step 1: parse.
	var sample telemetry.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		metrics.TelemetryMessagesTotal.WithLabelValues("dropped").Inc()
		e.logger.Debug("dropping unparseable telemetry message", "error", err)
		return
	}
	sample.ServerReceivedAt = time.Now().UTC()

	// Step 2: validate.
	if err := telemetry.Validate(sample); err != nil {
		metrics.TelemetryMessagesTotal.WithLabelValues("invalid").Inc()
		e.respond(ch, ackResponse{Status: "error", Reason: err.Error()})
		return
	}
	metrics.TelemetryMessagesTotal.WithLabelValues("received").Inc()

	self := telemetry.Normalize(sample)
	ttl := telemetry.TTLFor(self.Speed)

	// Step 3: upsert geo index + telemetry store, append history, bind
	// session. These share an upsert boundary per spec.md invariant 3.
	if err := e.geo.Upsert(self.UserID, self.Lat, self.Lon, time.Duration(ttl)*time.Second); err != nil {
		e.logger.Error("geo index upsert failed", "vehicle", self.UserID, "error", err)
		e.respond(ch, ackResponse{Status: "error", Reason: "store unavailable"})
		return
	}
	if err := e.store.Put(self.UserID, sample, ttl); err != nil {
		e.logger.Error("telemetry store put failed", "vehicle", self.UserID, "error", err)
		e.respond(ch, ackResponse{Status: "error", Reason: "store unavailable"})
		return
	}
	e.history.Append(self.UserID, self.Speed, sample.ServerReceivedAt.UnixMilli())
	e.sessions.Bind(self.UserID, ch)
	metrics.OpenSessions.Set(float64(e.sessions.Count()))
	if count, err := e.geo.Count(); err == nil {
		metrics.ActiveVehicles.Set(float64(count))
	}

	// Step 4: dynamic neighbor radius.
	isSuddenTurn := math.Abs(self.YawRateDegPerSec) >= e.cfg.AngularVelHighDegS
	radius := e.cfg.NearbyRadiusMeters
	if isSuddenTurn {
		radius += e.cfg.BlindSpotRadiusBoostMeters
	}

	// Step 5: query neighbors, excluding self.
	neighborIDs, err := e.geo.RadiusByMember(self.UserID, radius, maxNeighbors)
	if err != nil {
		e.logger.Error("geo index radius query failed", "vehicle", self.UserID, "error", err)
		e.respond(ch, ackResponse{Status: "error", Reason: "store unavailable"})
		return
	}
	neighborIDs = excludeSelf(neighborIDs, self.UserID)
	metrics.NeighborsEvaluated.Observe(float64(len(neighborIDs)))
	if len(neighborIDs) == 0 {
		e.respond(ch, ackResponse{Status: "received", Timestamp: nowISO(), Threats: []predictor.Threat{}})
		return
	}

	// Step 6: batch fetch neighbor telemetry.
	neighborSamples, err := e.store.MGet(neighborIDs)
	if err != nil {
		e.logger.Error("telemetry mget failed", "vehicle", self.UserID, "error", err)
		e.respond(ch, ackResponse{Status: "error", Reason: "store unavailable"})
		return
	}

	// Step 7: majority heading across self + valid neighbors.
	headings := []float64{self.HeadingDeg}
	for _, ns := range neighborSamples {
		if ns != nil {
			headings = append(headings, telemetry.Normalize(*ns).HeadingDeg)
		}
	}
	majorityHeading := predictor.MajorityHeadingDeg(headings)

	staleThreshold := time.Duration(e.cfg.StaleMS) * time.Millisecond
	now := sample.ServerReceivedAt

	var threatsToOrigin []predictor.Threat
	for i, neighborID := range neighborIDs {
		ns := neighborSamples[i]
		if ns == nil {
			continue
		}
		if ns.Timestamp != nil && now.Sub(ns.Timestamp.Time()) > staleThreshold {
			metrics.StaleNeighborsSkippedTotal.Inc()
			continue
		}

		other := telemetry.Normalize(*ns)
		ctx := predictor.Context{
			Cfg:                e.cfg,
			MajorityHeadingDeg: majorityHeading,
			OtherHistory:       e.history.LatestN(neighborID),
			NowMs:              now.UnixMilli(),
		}

		threat := predictor.Evaluate(self, other, ctx)
		if threat == nil {
			continue
		}
		metrics.ThreatsEmittedTotal.WithLabelValues(threat.Type).Inc()
		e.dispatcher.Dispatch(threat, self, ch)
		threatsToOrigin = append(threatsToOrigin, *threat)
	}

	if threatsToOrigin == nil {
		threatsToOrigin = []predictor.Threat{}
	}
	e.respond(ch, ackResponse{Status: "received", Timestamp: nowISO(), Threats: threatsToOrigin})
}

func excludeSelf(ids []string, self string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
