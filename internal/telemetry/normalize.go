package telemetry

import (
	"errors"
	"math"

	"collisionguard.dev/internal/geometry"
)

// ErrMissingUserID and ErrInvalidCoordinates are the two validation
// failures the ingress handler must surface to the origin as an error
// acknowledgment (spec.md §4.8 step 2 / §6).
var (
	ErrMissingUserID      = errors.New("missing userId")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// State is the Derived Kinematic State for one vehicle, produced by
// Normalize from a raw Sample.
type State struct {
	UserID           string
	Lat, Lon         float64
	HeadingDeg       float64 // in [0, 360)
	Speed            float64 // >= 0
	VelocityEast     float64
	VelocityNorth    float64
	YawRateDegPerSec float64
	LinearAccelMag   float64
	ReceivedAt       Sample
}

// Validate checks the two required fields from spec.md §4.8 step 2:
// non-empty userId and finite latitude/longitude. It does not mutate s.
func Validate(s Sample) error {
	if s.UserID == "" {
		return ErrMissingUserID
	}
	if !isFinite(s.Latitude) || !isFinite(s.Longitude) {
		return ErrInvalidCoordinates
	}
	return nil
}

// Normalize converts a validated raw Sample into a Derived Kinematic
// State, applying the coercion rules of spec.md §3/§9: non-finite speed
// is coerced to 0, negative speed is clamped to 0, heading is wrapped
// into [0, 360), and gyro.z is interpreted as radians/s if its
// magnitude is below 0.5, otherwise degrees/s.
func Normalize(s Sample) State {
	speed := s.Speed
	if !isFinite(speed) || speed < 0 {
		speed = 0
	}

	heading := geometry.NormalizeHeadingDeg(safeOrZero(s.Heading))

	vx, vy := geometry.VelocityENU(speed, heading)

	var yawRate float64
	if s.Gyro != nil {
		z := s.Gyro.Z
		if isFinite(z) {
			if math.Abs(z) < 0.5 {
				yawRate = z * 180 / math.Pi
			} else {
				yawRate = z
			}
		}
	}

	var accelMag float64
	if s.Accel != nil {
		x, y, z := s.Accel.X, s.Accel.Y, s.Accel.Z
		if isFinite(x) && isFinite(y) && isFinite(z) {
			accelMag = math.Sqrt(x*x + y*y + z*z)
		}
	}

	return State{
		UserID:           s.UserID,
		Lat:              s.Latitude,
		Lon:              s.Longitude,
		HeadingDeg:       heading,
		Speed:            speed,
		VelocityEast:     vx,
		VelocityNorth:    vy,
		YawRateDegPerSec: yawRate,
		LinearAccelMag:   accelMag,
		ReceivedAt:       s,
	}
}

// TTLFor returns the telemetry-entry TTL for a sample, per spec.md
// §3: 10s if speed > 5 m/s, otherwise 30s.
func TTLFor(speed float64) int {
	if speed > 5 {
		return 10
	}
	return 30
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func safeOrZero(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}
