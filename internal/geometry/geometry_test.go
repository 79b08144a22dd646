package geometry

import "testing"

func almostEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestGreatCircleMetersKnownDistance(t *testing.T) {
	// Roughly 100m apart along the equator at longitude offset 0.0009deg.
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 0, Lon: 0.0009}
	d := GreatCircleMeters(a, b)
	if !almostEqual(d, 100, 5) {
		t.Errorf("GreatCircleMeters = %v, want ~100", d)
	}
}

func TestNormalizeHeadingDeg(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0}, {360, 0}, {-10, 350}, {720 + 45, 45}, {-720 - 5, 355},
	}
	for _, c := range cases {
		got := NormalizeHeadingDeg(c.in)
		if !almostEqual(got, c.want, 1e-6) {
			t.Errorf("NormalizeHeadingDeg(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestHeadingDiffDegBounded(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{10, 350, 20},
		{0, 180, 180},
		{90, 270, 180},
		{0, 0, 0},
	}
	for _, c := range cases {
		got := HeadingDiffDeg(c.a, c.b)
		if !almostEqual(got, c.want, 1e-6) {
			t.Errorf("HeadingDiffDeg(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
		if got < 0 || got > 180 {
			t.Errorf("HeadingDiffDeg(%v, %v) = %v out of [0,180]", c.a, c.b, got)
		}
	}
}

func TestProjectGeodesicRoundTrip(t *testing.T) {
	lat, lon := 47.6, -122.3
	lat2, lon2 := ProjectGeodesic(lat, lon, 90, 1000)
	back := GreatCircleMeters(Point{lat, lon}, Point{lat2, lon2})
	if !almostEqual(back, 1000, 1) {
		t.Errorf("projected distance = %v, want ~1000", back)
	}
	if lon2 < -180 || lon2 > 180 {
		t.Errorf("longitude out of range: %v", lon2)
	}
}

func TestLocalENUMatchesGreatCircleAtShortRange(t *testing.T) {
	refLat, refLon := 47.6, -122.3
	lat2, lon2 := ProjectGeodesic(refLat, refLon, 0, 50) // due north 50m
	e, n := LocalENU(refLat, refLon, lat2, lon2)
	if !almostEqual(e, 0, 1) {
		t.Errorf("east = %v, want ~0", e)
	}
	if !almostEqual(n, 50, 1) {
		t.Errorf("north = %v, want ~50", n)
	}
}

func TestVelocityENUConvention(t *testing.T) {
	vx, vy := VelocityENU(10, 0) // due north
	if !almostEqual(vx, 0, 1e-9) || !almostEqual(vy, 10, 1e-9) {
		t.Errorf("VelocityENU(10,0) = (%v,%v), want (0,10)", vx, vy)
	}
	vx, vy = VelocityENU(10, 90) // due east
	if !almostEqual(vx, 10, 1e-9) || !almostEqual(vy, 0, 1e-9) {
		t.Errorf("VelocityENU(10,90) = (%v,%v), want (10,0)", vx, vy)
	}
}

func TestComputeCpaTtcHeadOn(t *testing.T) {
	// Two vehicles 100m apart closing head-on at 10 m/s each: should
	// meet near t=5s.
	selfPos := [2]float64{0, 0}
	otherPos := [2]float64{100, 0}
	selfVel := [2]float64{10, 0}
	otherVel := [2]float64{-10, 0}

	res := ComputeCpaTtc(selfPos, selfVel, otherPos, otherVel, 10)
	if !almostEqual(res.TStar, 5, 1e-6) {
		t.Errorf("TStar = %v, want 5", res.TStar)
	}
	if !almostEqual(res.CpaDistMeters, 0, 1e-6) {
		t.Errorf("CpaDistMeters = %v, want ~0", res.CpaDistMeters)
	}
	if res.ClosingSpeed <= 0 {
		t.Errorf("ClosingSpeed = %v, want positive", res.ClosingSpeed)
	}
}

func TestComputeCpaTtcDegenerateZeroRelativeVelocity(t *testing.T) {
	selfPos := [2]float64{0, 0}
	otherPos := [2]float64{30, 40}
	selfVel := [2]float64{5, 5}
	otherVel := [2]float64{5, 5}

	res := ComputeCpaTtc(selfPos, selfVel, otherPos, otherVel, 10)
	if res.TStar != 0 {
		t.Errorf("TStar = %v, want 0 for zero relative velocity", res.TStar)
	}
	if !almostEqual(res.CpaDistMeters, 50, 1e-6) {
		t.Errorf("CpaDistMeters = %v, want 50", res.CpaDistMeters)
	}
}

func TestLateralOffsetOrthogonalToHeading(t *testing.T) {
	// Self heading due north, other is directly east by 5m: lateral
	// offset should be ~5.
	selfPos := [2]float64{0, 0}
	otherPos := [2]float64{5, 0}
	off := LateralOffset(selfPos, otherPos, 0)
	if !almostEqual(off, 5, 1e-6) {
		t.Errorf("LateralOffset = %v, want 5", off)
	}
}
