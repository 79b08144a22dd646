package dispatch

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"collisionguard.dev/internal/predictor"
	"collisionguard.dev/internal/session"
	"collisionguard.dev/internal/telemetry"
)

type fakeChannel struct {
	sent    [][]byte
	failing bool
}

func (f *fakeChannel) Send(message []byte) error {
	if f.failing {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, message)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func originState(id string) telemetry.State {
	return telemetry.Normalize(telemetry.Sample{UserID: id, Latitude: 1, Longitude: 2, Speed: 5, Heading: 90})
}

func TestDispatchSendsToOriginUnconditionally(t *testing.T) {
	reg := session.NewRegistry()
	d := New(reg, testLogger())
	origin := originState("a")
	ch := &fakeChannel{}

	threat := &predictor.Threat{Type: "predicted_collision", ID: "b", Message: "test"}
	d.Dispatch(threat, origin, ch)

	if len(ch.sent) != 1 {
		t.Fatalf("origin received %d messages, want 1", len(ch.sent))
	}
	var env pushEnvelope
	if err := json.Unmarshal(ch.sent[0], &env); err != nil {
		t.Fatalf("unmarshal origin payload: %v", err)
	}
	if env.Data.ID != "b" {
		t.Errorf("origin's threat.ID = %q, want b (the counterpart)", env.Data.ID)
	}
}

func TestDispatchSendsMirroredCopyToCounterpartWhenBound(t *testing.T) {
	reg := session.NewRegistry()
	counterpartCh := &fakeChannel{}
	reg.Bind("b", counterpartCh)

	d := New(reg, testLogger())
	origin := originState("a")
	originCh := &fakeChannel{}

	threat := &predictor.Threat{Type: "predicted_collision", ID: "b", Lat: 10, Lng: 20, Message: "test"}
	d.Dispatch(threat, origin, originCh)

	if len(counterpartCh.sent) != 1 {
		t.Fatalf("counterpart received %d messages, want 1", len(counterpartCh.sent))
	}
	var env pushEnvelope
	if err := json.Unmarshal(counterpartCh.sent[0], &env); err != nil {
		t.Fatalf("unmarshal counterpart payload: %v", err)
	}
	if env.Data.ID != "a" {
		t.Errorf("counterpart's threat.ID = %q, want a (the origin)", env.Data.ID)
	}
	if env.Data.Lat != origin.Lat || env.Data.Lng != origin.Lon {
		t.Errorf("counterpart's threat position = (%v,%v), want origin's position", env.Data.Lat, env.Data.Lng)
	}
}

func TestDispatchSkipsCounterpartWhenUnbound(t *testing.T) {
	reg := session.NewRegistry()
	d := New(reg, testLogger())
	origin := originState("a")
	originCh := &fakeChannel{}

	threat := &predictor.Threat{Type: "overtake", ID: "ghost", Message: "test"}
	d.Dispatch(threat, origin, originCh)

	if len(originCh.sent) != 1 {
		t.Fatalf("origin received %d messages, want 1", len(originCh.sent))
	}
}

func TestDispatchSwallowsCounterpartSendFailure(t *testing.T) {
	reg := session.NewRegistry()
	counterpartCh := &fakeChannel{failing: true}
	reg.Bind("b", counterpartCh)

	d := New(reg, testLogger())
	origin := originState("a")
	originCh := &fakeChannel{}

	threat := &predictor.Threat{Type: "rear_end", ID: "b", Message: "test"}
	d.Dispatch(threat, origin, originCh)

	if len(originCh.sent) != 1 {
		t.Errorf("origin send should still have succeeded despite counterpart failure")
	}
}

func TestDispatchNilThreatIsNoOp(t *testing.T) {
	reg := session.NewRegistry()
	d := New(reg, testLogger())
	origin := originState("a")
	originCh := &fakeChannel{}

	d.Dispatch(nil, origin, originCh)

	if len(originCh.sent) != 0 {
		t.Errorf("expected no sends for nil threat")
	}
}
