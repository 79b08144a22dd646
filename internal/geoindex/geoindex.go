// Package geoindex is the expiring spatial index described in spec.md
// §4.1: upsert(id, lat, lon) with a TTL, and a radius-by-member query
// returning nearby ids. It is backed by github.com/tidwall/buntdb, an
// embedded store with both an R-tree spatial index and native per-key
// TTL, so upsert/expiry/nearby-query all ride the same engine rather
// than three hand-rolled pieces.
package geoindex

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/buntdb"

	"collisionguard.dev/internal/geometry"
)

const spatialIndexName = "vehicle_points"

// Index is the expiring spatial index of active vehicle positions.
type Index struct {
	db *buntdb.DB
}

// NewIndex opens an in-memory buntdb database with a spatial index
// over every key.
func NewIndex() (*Index, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open geo index: %w", err)
	}
	if err := db.CreateSpatialIndex(spatialIndexName, "*", buntdb.IndexRect); err != nil {
		db.Close()
		return nil, fmt.Errorf("create spatial index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (g *Index) Close() error {
	return g.db.Close()
}

// Count returns the number of vehicles with a non-expired entry.
func (g *Index) Count() (int, error) {
	n := 0
	err := g.db.View(func(tx *buntdb.Tx) error {
		var lenErr error
		n, lenErr = tx.Len()
		return lenErr
	})
	return n, err
}

// Upsert records (or refreshes) the position of id, expiring after ttl.
func (g *Index) Upsert(id string, lat, lon float64, ttl time.Duration) error {
	return g.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(id, rectValue(lat, lon), &buntdb.SetOptions{
			Expires: true,
			TTL:     ttl,
		})
		return err
	})
}

// RadiusByMember returns the ids (including id itself) whose last
// upsert is within meters of id's last known position, capped at
// maxCount. Entries past their TTL are never returned. An unknown id
// returns an empty, non-error result.
func (g *Index) RadiusByMember(id string, meters float64, maxCount int) ([]string, error) {
	centerLat, centerLon, found, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	latDelta := meters / metersPerDegLat
	lonDelta := meters / (metersPerDegLat*math.Cos(centerLat*math.Pi/180) + 1e-9)
	minLon, maxLon := centerLon-lonDelta, centerLon+lonDelta
	minLat, maxLat := centerLat-latDelta, centerLat+latDelta
	queryRect := fmt.Sprintf("[%f %f],[%f %f]", minLon, minLat, maxLon, maxLat)

	var results []string
	err = g.db.View(func(tx *buntdb.Tx) error {
		return tx.Intersects(spatialIndexName, queryRect, func(key, val string) bool {
			lon, lat, ok := parseRect(val)
			if !ok {
				return true
			}
			d := geometry.GreatCircleMeters(
				geometry.Point{Lat: centerLat, Lon: centerLon},
				geometry.Point{Lat: lat, Lon: lon},
			)
			if d <= meters {
				results = append(results, key)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	if maxCount > 0 && len(results) > maxCount {
		results = results[:maxCount]
	}
	return results, nil
}

func (g *Index) lookup(id string) (lat, lon float64, found bool, err error) {
	err = g.db.View(func(tx *buntdb.Tx) error {
		val, terr := tx.Get(id)
		if terr != nil {
			if terr == buntdb.ErrNotFound {
				return nil
			}
			return terr
		}
		lo, la, ok := parseRect(val)
		if !ok {
			return nil
		}
		lon, lat, found = lo, la, true
		return nil
	})
	return lat, lon, found, err
}

const metersPerDegLat = 111320.0

func rectValue(lat, lon float64) string {
	return fmt.Sprintf("[%f %f]", lon, lat)
}

func parseRect(val string) (lon, lat float64, ok bool) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
	parts := strings.Fields(trimmed)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lonV, err1 := strconv.ParseFloat(parts[0], 64)
	latV, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lonV, latV, true
}
