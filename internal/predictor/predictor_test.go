package predictor

import (
	"testing"

	"collisionguard.dev/internal/config"
	"collisionguard.dev/internal/geometry"
	"collisionguard.dev/internal/history"
	"collisionguard.dev/internal/telemetry"
)

func state(id string, lat, lon, headingDeg, speed float64) telemetry.State {
	s := telemetry.Sample{UserID: id, Latitude: lat, Longitude: lon, Heading: headingDeg, Speed: speed}
	st := telemetry.Normalize(s)
	return st
}

func TestPredictedCollisionHeadOnFires(t *testing.T) {
	cfg := config.Default()
	// Two vehicles 40m apart on the same meridian, heading straight at
	// each other at 10 m/s: they meet exactly at the t=2s step, well
	// within LookaheadS.
	self := state("self", 0, 0, 0, 10)
	lat2, _ := geometry.ProjectGeodesic(0, 0, 0, 40)
	other := state("other", lat2, 0, 180, 10)

	threat, ok := PredictedCollision(self, other, Context{Cfg: cfg})
	if !ok {
		t.Fatalf("expected predicted_collision to fire")
	}
	if threat.Type != "predicted_collision" {
		t.Errorf("Type = %q, want predicted_collision", threat.Type)
	}
	if threat.ID != "other" {
		t.Errorf("ID = %q, want other", threat.ID)
	}
}

func TestPredictedCollisionDivergingDoesNotFire(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 10)
	other := state("other", 1, 1, 45, 10)

	if _, ok := PredictedCollision(self, other, Context{Cfg: cfg}); ok {
		t.Errorf("expected no predicted_collision for diverging vehicles")
	}
}

func TestRearEndFiresOnHardBrakingAhead(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 15)
	lat2, _ := geometry.ProjectGeodesic(0, 0, 0, 5)
	other := state("other", lat2, 0, 0, 2)

	hist := []history.Sample{
		{Speed: 14, ServerReceiveMs: 0},
		{Speed: 2, ServerReceiveMs: 1000},
	}

	threat, ok := RearEnd(self, other, Context{Cfg: cfg, OtherHistory: hist})
	if !ok {
		t.Fatalf("expected rear_end to fire")
	}
	if threat.Type != "rear_end" {
		t.Errorf("Type = %q, want rear_end", threat.Type)
	}
}

func TestRearEndRequiresTwoHistorySamples(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 15)
	other := state("other", 0.00004, 0, 0, 2)

	if _, ok := RearEnd(self, other, Context{Cfg: cfg, OtherHistory: nil}); ok {
		t.Errorf("expected no rear_end without sufficient history")
	}
}

func TestWrongDirectionFiresAgainstMajorityHeading(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 5)
	lat2, _ := geometry.ProjectGeodesic(0, 0, 0, 20)
	other := state("other", lat2, 0, 180, 5)

	threat, ok := WrongDirection(self, other, Context{Cfg: cfg, MajorityHeadingDeg: 0})
	if !ok {
		t.Fatalf("expected wrong_direction to fire")
	}
	if threat.Type != "wrong_direction" {
		t.Errorf("Type = %q, want wrong_direction", threat.Type)
	}
}

func TestWrongDirectionIgnoresFarVehicle(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 5)
	lat2, _ := geometry.ProjectGeodesic(0, 0, 0, 500)
	other := state("other", lat2, 0, 180, 5)

	if _, ok := WrongDirection(self, other, Context{Cfg: cfg, MajorityHeadingDeg: 0}); ok {
		t.Errorf("expected no wrong_direction beyond the 40m range")
	}
}

func TestIntersectionFiresOnCrossingPaths(t *testing.T) {
	cfg := config.Default()
	// self moving east at 5 m/s, other moving north at 5 m/s, positioned
	// so their paths cross imminently.
	self := state("self", 0, 0, 90, 5)
	otherLat, _ := geometry.ProjectGeodesic(0, 0.00003, 180, 12)
	other := state("other", otherLat, 0.00003, 0, 5)

	threat, ok := Intersection(self, other, Context{Cfg: cfg})
	if !ok {
		t.Fatalf("expected intersection_collision to fire")
	}
	if threat.Type != "intersection_collision" {
		t.Errorf("Type = %q, want intersection_collision", threat.Type)
	}
}

func TestIntersectionRequiresBothVehiclesMoving(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 90, 0)
	other := state("other", 0.0001, 0.0001, 0, 5)

	if _, ok := Intersection(self, other, Context{Cfg: cfg}); ok {
		t.Errorf("expected no intersection_collision when self is stationary")
	}
}

// metersToDegAtEquator approximates the lat/lon offset for an (east,
// north) meter displacement from a vehicle sitting on the equator,
// matching the same equirectangular approximation internal/geometry
// uses for short-range ENU conversions.
func metersToDegAtEquator(eastM, northM float64) (lat, lon float64) {
	const metersPerDeg = 111320.0
	return northM / metersPerDeg, eastM / metersPerDeg
}

func TestOvertakeFiresOnFastCloseSameDirection(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 8)
	// 2m east, 5m behind (south): a faster neighbor drawing alongside
	// from behind in the same lane.
	lat, lon := metersToDegAtEquator(2, -5)
	other := state("other", lat, lon, 0, 12)

	threat, ok := Overtake(self, other, Context{Cfg: cfg})
	if !ok {
		t.Fatalf("expected overtake to fire")
	}
	if threat.Type != "overtake" {
		t.Errorf("Type = %q, want overtake", threat.Type)
	}
}

func TestOvertakeIgnoresSlowerVehicle(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 12)
	lat, lon := metersToDegAtEquator(2, -5)
	other := state("other", lat, lon, 0, 8)

	if _, ok := Overtake(self, other, Context{Cfg: cfg}); ok {
		t.Errorf("expected no overtake when the neighbor is slower")
	}
}

func TestEvaluateStopsAtFirstHit(t *testing.T) {
	cfg := config.Default()
	self := state("self", 0, 0, 0, 10)
	lat2, _ := geometry.ProjectGeodesic(0, 0, 0, 40)
	other := state("other", lat2, 0, 180, 10)

	threat := Evaluate(self, other, Context{Cfg: cfg})
	if threat == nil {
		t.Fatalf("expected Evaluate to return a threat")
	}
	if threat.Type != "predicted_collision" {
		t.Errorf("Type = %q, want predicted_collision to win over later predictors", threat.Type)
	}
}

func TestMajorityHeadingDegAveragesAroundWrap(t *testing.T) {
	got := MajorityHeadingDeg([]float64{350, 10})
	if got > 5 && got < 355 {
		t.Errorf("MajorityHeadingDeg([350,10]) = %v, want near 0/360", got)
	}
}
