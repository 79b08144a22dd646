// Package geometry is the kinematic geometry kernel shared by the
// predictor bank: great-circle distance, forward geodesic projection,
// local ENU linearization, and closest-point-of-approach / time-to-CPA.
//
// Axis convention: every function in this package, and every caller in
// internal/predictor, treats heading as a compass bearing in degrees
// clockwise from true north, and ENU vectors as (east, north) meters.
// x is always east, y is always north.
package geometry

import (
	"math"

	"github.com/golang/geo/s2"
)

// earthRadiusInMeters is the Earth's volumetric mean radius, matching
// the constant used throughout the retrieved example pack's spherical
// geometry helpers.
const earthRadiusInMeters = 6371000.0

// metersPerDegLat is the length of one degree of latitude, used for the
// short-range equirectangular ENU linearization.
const metersPerDegLat = 111320.0

// Point is a WGS-84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// GreatCircleMeters returns the Haversine great-circle distance between
// two points, in meters.
func GreatCircleMeters(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}

// NormalizeHeadingDeg wraps a heading into [0, 360).
func NormalizeHeadingDeg(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingDiffDeg returns the smallest-arc absolute difference between
// two headings, in [0, 180].
func HeadingDiffDeg(a, b float64) float64 {
	d := math.Abs(NormalizeHeadingDeg(a) - NormalizeHeadingDeg(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// ProjectGeodesic performs a spherical forward projection: starting at
// (lat, lon), travel distMeters along bearingDeg (compass bearing,
// clockwise from north) along a great circle. The returned longitude is
// wrapped to (-180, 180].
func ProjectGeodesic(lat, lon, bearingDeg, distMeters float64) (float64, float64) {
	angDist := distMeters / earthRadiusInMeters
	lat1 := lat * math.Pi / 180
	lon1 := lon * math.Pi / 180
	brng := bearingDeg * math.Pi / 180

	sinLat1, cosLat1 := math.Sin(lat1), math.Cos(lat1)
	sinAng, cosAng := math.Sin(angDist), math.Cos(angDist)

	lat2 := math.Asin(sinLat1*cosAng + cosLat1*sinAng*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*sinAng*cosLat1,
		cosAng-sinLat1*math.Sin(lat2),
	)

	latOut := lat2 * 180 / math.Pi
	lonOut := math.Mod(lon2*180/math.Pi+540, 360) - 180
	if lonOut == -180 {
		lonOut = 180
	}
	return latOut, lonOut
}

// LocalENU converts (lat, lon) into local east/north meters relative to
// (refLat, refLon), using an equirectangular approximation valid only
// at short range (hundreds of meters).
func LocalENU(refLat, refLon, lat, lon float64) (east, north float64) {
	metersPerDegLon := metersPerDegLat * math.Cos(refLat*math.Pi/180)
	east = (lon - refLon) * metersPerDegLon
	north = (lat - refLat) * metersPerDegLat
	return east, north
}

// VelocityENU decomposes a speed/heading pair into an (east, north)
// velocity vector in meters per second.
func VelocityENU(speed, headingDeg float64) (vx, vy float64) {
	rad := headingDeg * math.Pi / 180
	return speed * math.Sin(rad), speed * math.Cos(rad)
}

// CpaResult is the outcome of a closest-point-of-approach computation.
type CpaResult struct {
	TStar        float64 // seconds, clamped to [0, maxT]
	CpaDistMeters float64
	SelfAt       [2]float64 // local ENU position of self at TStar
	OtherAt      [2]float64 // local ENU position of other at TStar
	ClosingSpeed float64    // positive when closing
}

// ComputeCpaTtc computes the closest point of approach and time-to-CPA
// for two vehicles given their current local ENU positions and
// velocities, clamped to [0, maxT] seconds.
func ComputeCpaTtc(selfPos, selfVel, otherPos, otherVel [2]float64, maxT float64) CpaResult {
	rx, ry := otherPos[0]-selfPos[0], otherPos[1]-selfPos[1]
	vx, vy := otherVel[0]-selfVel[0], otherVel[1]-selfVel[1]

	vSq := vx*vx + vy*vy
	rDotV := rx*vx + ry*vy
	rMag := math.Hypot(rx, ry)

	var tStar float64
	if vSq <= 1e-6 {
		tStar = 0
	} else {
		tStar = -rDotV / vSq
		if tStar < 0 {
			tStar = 0
		}
		if tStar > maxT {
			tStar = maxT
		}
	}

	selfAt := [2]float64{selfPos[0] + selfVel[0]*tStar, selfPos[1] + selfVel[1]*tStar}
	otherAt := [2]float64{otherPos[0] + otherVel[0]*tStar, otherPos[1] + otherVel[1]*tStar}
	cpaDist := math.Hypot(otherAt[0]-selfAt[0], otherAt[1]-selfAt[1])

	var closingSpeed float64
	if rMag > 1e-9 {
		closingSpeed = -rDotV / rMag
	}

	return CpaResult{
		TStar:         tStar,
		CpaDistMeters: cpaDist,
		SelfAt:        selfAt,
		OtherAt:       otherAt,
		ClosingSpeed:  closingSpeed,
	}
}

// LateralOffset returns the magnitude of the component of (otherPos -
// selfPos) orthogonal to selfHeadingDeg, in meters. Used by the
// overtake predictor to measure how far to the side a passing vehicle
// is.
func LateralOffset(selfPos, otherPos [2]float64, selfHeadingDeg float64) float64 {
	rx, ry := otherPos[0]-selfPos[0], otherPos[1]-selfPos[1]
	fx, fy := VelocityENU(1, selfHeadingDeg)
	// Orthogonal (perpendicular) unit vector to the heading.
	px, py := -fy, fx
	return math.Abs(rx*px + ry*py)
}
