// Package telemetry defines the wire and domain representations of a
// vehicle telemetry sample, the normalization rules that turn a raw
// client payload into a derived kinematic state, and the TTL-backed
// store that holds the latest sample per vehicle.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Vector3 is an optional 3-axis sensor reading (accelerometer or
// gyroscope), in the client's native units.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Timestamp accepts either an ISO-8601 string or a Unix-epoch-millis
// JSON number, matching the "client-supplied wall time" field of a raw
// telemetry message. Grounded on the teacher's CustomTime pattern of a
// json.Unmarshaler wrapper around time.Time, generalized to accept
// either wire representation.
type Timestamp time.Time

// MarshalJSON renders the timestamp as RFC3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts a JSON string (RFC3339 or digits-only millis)
// or a bare JSON number (epoch millis).
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			*t = Timestamp(time.Time{})
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			*t = Timestamp(parsed)
			return nil
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			*t = Timestamp(time.UnixMilli(ms))
			return nil
		}
		return fmt.Errorf("unrecognized timestamp string %q", v)
	case float64:
		*t = Timestamp(time.UnixMilli(int64(v)))
		return nil
	default:
		return fmt.Errorf("unsupported timestamp JSON type %T", raw)
	}
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// Sample is the canonical unit of input: one telemetry message from a
// vehicle, exactly as received over the wire.
type Sample struct {
	UserID              string     `json:"userId"`
	Latitude            float64    `json:"latitude"`
	Longitude           float64    `json:"longitude"`
	Speed               float64    `json:"speed"`
	Heading             float64    `json:"heading"`
	Accel               *Vector3   `json:"accel,omitempty"`
	Gyro                *Vector3   `json:"gyro,omitempty"`
	HorizontalAccuracy  *float64   `json:"horizontalAccuracy,omitempty"`
	Timestamp           *Timestamp `json:"timestamp,omitempty"`

	// ServerReceivedAt is stamped by the ingress handler, not the
	// client, and is excluded from the wire representation.
	ServerReceivedAt time.Time `json:"-"`
}

// ClientTime returns the client-supplied timestamp, or the server
// receive time if the client did not supply one.
func (s Sample) ClientTime() time.Time {
	if s.Timestamp != nil {
		return s.Timestamp.Time()
	}
	return s.ServerReceivedAt
}

// VehicleSummary is the recipient-relative "sourceVehicle" block
// carried on every threat payload.
type VehicleSummary struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
	Heading   float64 `json:"heading"`
}

// Summary builds the VehicleSummary for this sample.
func (s Sample) Summary() VehicleSummary {
	return VehicleSummary{
		UserID:    s.UserID,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Speed:     s.Speed,
		Heading:   s.Heading,
	}
}
