// Package config holds the tunable thresholds that drive the collision
// engine and the ambient process configuration (port, environment,
// Sentry DSN). All engine thresholds are environment-overridable with
// the defaults from the specification table.
package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Config is the full set of tuning thresholds for the collision engine,
// plus the ambient settings needed to start the process. It is loaded
// once at startup via Load and treated as read-only afterwards.
type Config struct {
	// Ambient / process settings.
	Port           int
	Env            string
	Version        string
	SentryDSN      string
	AuthValidateURL string
	WorkerPoolSize int

	// Engine tuning thresholds (spec.md §6).
	NearbyRadiusMeters           float64
	ProjectionTimeSeconds        float64
	ThreatDistanceMeters         float64
	MinMovingSpeedMS             float64
	AngularVelHighDegS           float64
	UncertaintyInflationMeters   float64
	BlindSpotRadiusBoostMeters   float64
	StaleMS                      int64
	TTCMaxSeconds                float64
	ClosingSpeedStrongMS         float64
	LookaheadS                   int
	PredictStep                  int
	CollisionRadiusM             float64
	RearEndDistanceM             float64
	SuddenDecelMS2               float64
	WrongDirDiffDeg              float64
}

// Default returns the Config populated entirely with the defaults from
// the specification table, ignoring the environment. Useful for tests.
func Default() *Config {
	return &Config{
		Port:           4000,
		Env:            "development",
		Version:        "dev",
		WorkerPoolSize: 0, // 0 means "runtime.NumCPU()" at startup

		NearbyRadiusMeters:         75,
		ProjectionTimeSeconds:      3,
		ThreatDistanceMeters:       15,
		MinMovingSpeedMS:           0.1,
		AngularVelHighDegS:         45,
		UncertaintyInflationMeters: 5,
		BlindSpotRadiusBoostMeters: 8,
		StaleMS:                    4000,
		TTCMaxSeconds:              3,
		ClosingSpeedStrongMS:       10,
		LookaheadS:                 5,
		PredictStep:                1,
		CollisionRadiusM:           4,
		RearEndDistanceM:           10,
		SuddenDecelMS2:             2.0,
		WrongDirDiffDeg:            150,
	}
}

// Load builds a Config starting from Default() and overriding every
// field for which the matching environment variable is set and parses
// cleanly. A malformed override is logged and the default is kept,
// following the teacher's "degrade, don't crash on bad input" policy.
func Load(logger *slog.Logger) *Config {
	cfg := Default()

	cfg.Port = envInt(logger, "PORT", cfg.Port)
	cfg.Env = envString("ENV", cfg.Env)
	cfg.SentryDSN = envString("SENTRY_DSN", cfg.SentryDSN)
	cfg.AuthValidateURL = envString("AUTH_VALIDATE_URL", cfg.AuthValidateURL)
	cfg.WorkerPoolSize = envInt(logger, "WORKER_POOL_SIZE", cfg.WorkerPoolSize)

	cfg.NearbyRadiusMeters = envFloat(logger, "NEARBY_RADIUS_METERS", cfg.NearbyRadiusMeters)
	cfg.ProjectionTimeSeconds = envFloat(logger, "PROJECTION_TIME_SECONDS", cfg.ProjectionTimeSeconds)
	cfg.ThreatDistanceMeters = envFloat(logger, "THREAT_DISTANCE_METERS", cfg.ThreatDistanceMeters)
	cfg.MinMovingSpeedMS = envFloat(logger, "MIN_MOVING_SPEED_MS", cfg.MinMovingSpeedMS)
	cfg.AngularVelHighDegS = envFloat(logger, "ANGULAR_VEL_HIGH_DEG_S", cfg.AngularVelHighDegS)
	cfg.UncertaintyInflationMeters = envFloat(logger, "UNCERTAINTY_INFLATION_METERS", cfg.UncertaintyInflationMeters)
	cfg.BlindSpotRadiusBoostMeters = envFloat(logger, "BLIND_SPOT_RADIUS_BOOST_METERS", cfg.BlindSpotRadiusBoostMeters)
	cfg.StaleMS = envInt64(logger, "STALE_MS", cfg.StaleMS)
	cfg.TTCMaxSeconds = envFloat(logger, "TTC_MAX_SECONDS", cfg.TTCMaxSeconds)
	cfg.ClosingSpeedStrongMS = envFloat(logger, "CLOSING_SPEED_STRONG_MS", cfg.ClosingSpeedStrongMS)
	cfg.LookaheadS = envInt(logger, "LOOKAHEAD_S", cfg.LookaheadS)
	cfg.PredictStep = envInt(logger, "PREDICT_STEP", cfg.PredictStep)
	cfg.CollisionRadiusM = envFloat(logger, "COLLISION_RADIUS_M", cfg.CollisionRadiusM)
	cfg.RearEndDistanceM = envFloat(logger, "REAR_END_DISTANCE_M", cfg.RearEndDistanceM)
	cfg.SuddenDecelMS2 = envFloat(logger, "SUDDEN_DECEL_MS2", cfg.SuddenDecelMS2)
	cfg.WrongDirDiffDeg = envFloat(logger, "WRONG_DIR_DIFF_DEG", cfg.WrongDirDiffDeg)

	return cfg
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(logger *slog.Logger, name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("ignoring malformed env override", "name", name, "value", raw, "error", err)
		return def
	}
	return v
}

func envInt64(logger *slog.Logger, name string, def int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("ignoring malformed env override", "name", name, "value", raw, "error", err)
		return def
	}
	return v
}

func envFloat(logger *slog.Logger, name string, def float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warn("ignoring malformed env override", "name", name, "value", raw, "error", err)
		return def
	}
	return v
}
