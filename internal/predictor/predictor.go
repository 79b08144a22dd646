// Package predictor is the bank of five kinematic threat detectors
// described in spec.md §4.6. Each predictor is a pure function of two
// derived kinematic states plus their recent history and shared
// context; the ingress handler invokes them in the fixed order below
// and stops at the first hit for a given (self, other) pair.
package predictor

import (
	"fmt"
	"math"

	"collisionguard.dev/internal/config"
	"collisionguard.dev/internal/geometry"
	"collisionguard.dev/internal/history"
	"collisionguard.dev/internal/telemetry"
)

// overtakeSideMaxMeters bounds how far to the side a passing vehicle
// may be for the overtake predictor to fire. spec.md §4.6.5 names this
// threshold (OVERTAKE_SIDE_MAX_M) but it is absent from the §6
// configuration table, so it is kept as an internal constant rather
// than invented as an extra env var.
const overtakeSideMaxMeters = 3.0

// overtakeCpaMaxSeconds is the literal "tStar ≤ 2 s" CPA confirmation
// window from spec.md §4.6.5, distinct from the configurable
// TTC_MAX_SECONDS used by the intersection predictor.
const overtakeCpaMaxSeconds = 2.0

// minMovingSpeedForIntersection is the literal 2.78 m/s (10 km/h)
// threshold from spec.md §4.6.4.
const minMovingSpeedForIntersection = 2.78

// Threat is the canonical output record of spec.md §3, already
// oriented from the receiving vehicle's point of view: Id/Lat/Lng and
// SourceVehicle describe the counterpart.
type Threat struct {
	Type           string                    `json:"type"`
	ID             string                    `json:"id"`
	Lat            float64                   `json:"lat"`
	Lng            float64                   `json:"lng"`
	SourceVehicle  telemetry.VehicleSummary  `json:"sourceVehicle"`
	FutureDistanceM *float64                 `json:"future_distance_m,omitempty"`
	TimeS           *float64                 `json:"time_s,omitempty"`
	DistanceM       *float64                 `json:"distance_m,omitempty"`
	Deceleration    *float64                 `json:"deceleration,omitempty"`
	TimeToCPAS      *float64                 `json:"timeToCPA_s,omitempty"`
	LateralM        *float64                 `json:"lateral_m,omitempty"`
	Message         string                   `json:"message"`
}

// Context is everything a predictor needs beyond the two vehicle
// states: the neighborhood's majority heading and the engine's tuning
// thresholds.
type Context struct {
	Cfg                *config.Config
	MajorityHeadingDeg float64
	OtherHistory       []history.Sample
	NowMs              int64
}

// Func is the signature every predictor in the Bank implements.
type Func func(self, other telemetry.State, ctx Context) (*Threat, bool)

// Bank is the fixed, ordered list of predictors from spec.md §4.6.
// The ingress handler runs them in this order and stops at the first
// hit.
var Bank = []struct {
	Name string
	Run  Func
}{
	{"predicted_collision", PredictedCollision},
	{"rear_end", RearEnd},
	{"wrong_direction", WrongDirection},
	{"intersection_collision", Intersection},
	{"overtake", Overtake},
}

// Evaluate runs the bank in order and returns the first threat that
// fires, or nil if none do.
func Evaluate(self, other telemetry.State, ctx Context) *Threat {
	for _, p := range Bank {
		if threat, ok := p.Run(self, other, ctx); ok {
			return threat
		}
	}
	return nil
}

func counterpartThreat(threatType string, other telemetry.State, message string) Threat {
	return Threat{
		Type:          threatType,
		ID:            other.UserID,
		Lat:           other.Lat,
		Lng:           other.Lon,
		SourceVehicle: other.ReceivedAt.Summary(),
		Message:       message,
	}
}

func fptr(v float64) *float64 { return &v }

// PredictedCollision implements spec.md §4.6.1: simulate both vehicles
// at constant heading/speed and look for a projected collision within
// LookaheadS seconds.
func PredictedCollision(self, other telemetry.State, ctx Context) (*Threat, bool) {
	step := ctx.Cfg.PredictStep
	if step <= 0 {
		step = 1
	}
	for t := step; t <= ctx.Cfg.LookaheadS; t += step {
		tf := float64(t)
		selfLat, selfLon := geometry.ProjectGeodesic(self.Lat, self.Lon, self.HeadingDeg, self.Speed*tf)
		otherLat, otherLon := geometry.ProjectGeodesic(other.Lat, other.Lon, other.HeadingDeg, other.Speed*tf)
		d := geometry.GreatCircleMeters(
			geometry.Point{Lat: selfLat, Lon: selfLon},
			geometry.Point{Lat: otherLat, Lon: otherLon},
		)
		if d <= ctx.Cfg.CollisionRadiusM {
			threat := counterpartThreat("predicted_collision", other,
				fmt.Sprintf("predicted collision with %s in %ds", other.UserID, t))
			threat.TimeS = fptr(tf)
			threat.FutureDistanceM = fptr(d)
			return &threat, true
		}
	}
	return nil, false
}

// RearEnd implements spec.md §4.6.2.
func RearEnd(self, other telemetry.State, ctx Context) (*Threat, bool) {
	if len(ctx.OtherHistory) < 2 {
		return nil, false
	}
	n := len(ctx.OtherHistory)
	prev := ctx.OtherHistory[n-2]
	last := ctx.OtherHistory[n-1]

	dtSec := float64(last.ServerReceiveMs-prev.ServerReceiveMs) / 1000.0
	if dtSec < 1 {
		dtSec = 1
	}
	decel := (prev.Speed - last.Speed) / dtSec

	closingSpeed := self.Speed - other.Speed
	dist := geometry.GreatCircleMeters(
		geometry.Point{Lat: self.Lat, Lon: self.Lon},
		geometry.Point{Lat: other.Lat, Lon: other.Lon},
	)

	if decel >= ctx.Cfg.SuddenDecelMS2 && dist <= ctx.Cfg.RearEndDistanceM && closingSpeed > 0.5 {
		threat := counterpartThreat("rear_end", other,
			fmt.Sprintf("%s braking hard ahead", other.UserID))
		threat.DistanceM = fptr(dist)
		threat.Deceleration = fptr(decel)
		return &threat, true
	}
	return nil, false
}

// WrongDirection implements spec.md §4.6.3.
func WrongDirection(self, other telemetry.State, ctx Context) (*Threat, bool) {
	diff := geometry.HeadingDiffDeg(other.HeadingDeg, ctx.MajorityHeadingDeg)
	dist := geometry.GreatCircleMeters(
		geometry.Point{Lat: self.Lat, Lon: self.Lon},
		geometry.Point{Lat: other.Lat, Lon: other.Lon},
	)
	if diff >= ctx.Cfg.WrongDirDiffDeg && dist <= 40 {
		threat := counterpartThreat("wrong_direction", other,
			fmt.Sprintf("%s heading the wrong way", other.UserID))
		threat.DistanceM = fptr(dist)
		return &threat, true
	}
	return nil, false
}

// Intersection implements spec.md §4.6.4.
func Intersection(self, other telemetry.State, ctx Context) (*Threat, bool) {
	if self.Speed < minMovingSpeedForIntersection || other.Speed < minMovingSpeedForIntersection {
		return nil, false
	}
	diff := geometry.HeadingDiffDeg(self.HeadingDeg, other.HeadingDeg)
	if diff < 60 || diff > 120 {
		return nil, false
	}

	selfPos := [2]float64{0, 0}
	otherEast, otherNorth := geometry.LocalENU(self.Lat, self.Lon, other.Lat, other.Lon)
	otherPos := [2]float64{otherEast, otherNorth}
	selfVel := [2]float64{self.VelocityEast, self.VelocityNorth}
	otherVel := [2]float64{other.VelocityEast, other.VelocityNorth}

	res := geometry.ComputeCpaTtc(selfPos, selfVel, otherPos, otherVel, ctx.Cfg.ProjectionTimeSeconds)
	if res.CpaDistMeters <= 8 && res.TStar <= ctx.Cfg.TTCMaxSeconds {
		threat := counterpartThreat("intersection_collision", other,
			fmt.Sprintf("crossing paths with %s", other.UserID))
		threat.TimeToCPAS = fptr(res.TStar)
		threat.DistanceM = fptr(res.CpaDistMeters)
		return &threat, true
	}
	return nil, false
}

// Overtake implements spec.md §4.6.5.
func Overtake(self, other telemetry.State, ctx Context) (*Threat, bool) {
	diff := geometry.HeadingDiffDeg(self.HeadingDeg, other.HeadingDeg)
	if diff > 20 {
		return nil, false
	}
	dist := geometry.GreatCircleMeters(
		geometry.Point{Lat: self.Lat, Lon: self.Lon},
		geometry.Point{Lat: other.Lat, Lon: other.Lon},
	)
	if dist > 12 {
		return nil, false
	}
	if other.Speed <= self.Speed+1.5 {
		return nil, false
	}

	selfPos := [2]float64{0, 0}
	otherEast, otherNorth := geometry.LocalENU(self.Lat, self.Lon, other.Lat, other.Lon)
	otherPos := [2]float64{otherEast, otherNorth}

	lateral := geometry.LateralOffset(selfPos, otherPos, self.HeadingDeg)
	if lateral > overtakeSideMaxMeters {
		return nil, false
	}

	selfVel := [2]float64{self.VelocityEast, self.VelocityNorth}
	otherVel := [2]float64{other.VelocityEast, other.VelocityNorth}
	res := geometry.ComputeCpaTtc(selfPos, selfVel, otherPos, otherVel, overtakeCpaMaxSeconds)
	if res.ClosingSpeed <= 0.3 || res.TStar > overtakeCpaMaxSeconds {
		return nil, false
	}

	threat := counterpartThreat("overtake", other,
		fmt.Sprintf("%s overtaking close", other.UserID))
	threat.LateralM = fptr(lateral)
	return &threat, true
}

// MajorityHeadingDeg computes the argument of the unit-vector sum of
// headings, robust to the 0/360 wrap, per spec.md §4.6.3 / GLOSSARY.
func MajorityHeadingDeg(headingsDeg []float64) float64 {
	var sx, sy float64
	for _, h := range headingsDeg {
		rad := h * math.Pi / 180
		sx += math.Sin(rad)
		sy += math.Cos(rad)
	}
	if sx == 0 && sy == 0 {
		return 0
	}
	deg := math.Atan2(sx, sy) * 180 / math.Pi
	return geometry.NormalizeHeadingDeg(deg)
}
