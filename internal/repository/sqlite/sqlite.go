// Package sqlite is the default single-file storage backend. The
// schema is bootstrapped on open so a fresh checkout can run without a
// migration step.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rideback/backend/internal/domain"
)

// SQLiteRepository implements domain.DataRepository on a local SQLite
// file.
type SQLiteRepository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS taxi_zones (
	location_id  INTEGER PRIMARY KEY,
	zone         TEXT NOT NULL,
	borough      TEXT NOT NULL,
	centroid_lat REAL,
	centroid_lon REAL
);

CREATE TABLE IF NOT EXISTS trips (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	pickup_time      DATETIME NOT NULL,
	dropoff_time     DATETIME,
	pickup_zone_id   INTEGER NOT NULL,
	drop_zone_id     INTEGER,
	no_of_passengers INTEGER DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_trips_pickup_time ON trips(pickup_time);
CREATE INDEX IF NOT EXISTS idx_trips_pickup_zone ON trips(pickup_zone_id);

CREATE TABLE IF NOT EXISTS rides (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	pickup_zone_id   INTEGER NOT NULL,
	drop_zone_id     INTEGER NOT NULL,
	pickup_time      DATETIME NOT NULL,
	no_of_passengers INTEGER DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_rides_lookup ON rides(pickup_zone_id, drop_zone_id, pickup_time);
`

// Open opens (creating if needed) the SQLite database at path and
// bootstraps the schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// ListZones returns the zone catalog ordered by id.
func (r *SQLiteRepository) ListZones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT location_id, zone, borough, centroid_lat, centroid_lon
		FROM taxi_zones
		ORDER BY location_id
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Borough, &z.CentroidLat, &z.CentroidLon); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("sqlite: zone rows iteration: %w", rows.Err())
	}
	return zones, nil
}

// GetZone returns one zone or domain.ErrZoneNotFound.
func (r *SQLiteRepository) GetZone(ctx context.Context, id int) (domain.Zone, error) {
	var z domain.Zone
	err := r.db.QueryRowContext(ctx, `
		SELECT location_id, zone, borough, centroid_lat, centroid_lon
		FROM taxi_zones
		WHERE location_id = ?
	`, id).Scan(&z.ID, &z.Name, &z.Borough, &z.CentroidLat, &z.CentroidLon)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	if err != nil {
		return domain.Zone{}, fmt.Errorf("sqlite: failed to query zone %d: %w", id, err)
	}
	return z, nil
}

// InsertZone adds a zone to the catalog, replacing any previous row
// with the same id. Used by the seeder.
func (r *SQLiteRepository) InsertZone(ctx context.Context, z domain.Zone) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO taxi_zones (location_id, zone, borough, centroid_lat, centroid_lon)
		VALUES (?, ?, ?, ?, ?)
	`, z.ID, z.Name, z.Borough, z.CentroidLat, z.CentroidLon)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert zone %d: %w", z.ID, err)
	}
	return nil
}

// LoadTrips returns all trips with a non-null pickup time.
func (r *SQLiteRepository) LoadTrips(ctx context.Context) ([]domain.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pickup_time, dropoff_time, pickup_zone_id, drop_zone_id, no_of_passengers
		FROM trips
		WHERE pickup_time IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var t domain.Trip
		var dropZone sql.NullInt64
		var passengers sql.NullInt64
		if err := rows.Scan(&t.PickupTime, &t.DropoffTime, &t.PickupZone, &dropZone, &passengers); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan trip row: %w", err)
		}
		t.DropZone = int(dropZone.Int64)
		t.Passengers = int(passengers.Int64)
		trips = append(trips, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("sqlite: trip rows iteration: %w", rows.Err())
	}
	return trips, nil
}

// CountTrips returns the size of the trip log.
func (r *SQLiteRepository) CountTrips(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count trips: %w", err)
	}
	return count, nil
}

// InsertTrip appends one trip to the log.
func (r *SQLiteRepository) InsertTrip(ctx context.Context, trip domain.Trip) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trips (pickup_time, dropoff_time, pickup_zone_id, drop_zone_id, no_of_passengers)
		VALUES (?, ?, ?, ?, ?)
	`, trip.PickupTime, trip.DropoffTime, trip.PickupZone, trip.DropZone, trip.Passengers)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert trip: %w", err)
	}
	return nil
}

// InsertTrips appends a batch of trips in one transaction. Used by the
// seeder.
func (r *SQLiteRepository) InsertTrips(ctx context.Context, trips []domain.Trip) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin trips batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trips (pickup_time, dropoff_time, pickup_zone_id, drop_zone_id, no_of_passengers)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare trips batch: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range trips {
		if _, err := stmt.ExecContext(ctx, t.PickupTime, t.DropoffTime, t.PickupZone, t.DropZone, t.Passengers); err != nil {
			return inserted, fmt.Errorf("sqlite: insert trip in batch: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit trips batch: %w", err)
	}
	return inserted, nil
}

// ListRidesBetween returns active rides on the given zone pair within
// the pickup window, ordered ascending by pickup time.
func (r *SQLiteRepository) ListRidesBetween(ctx context.Context, pickupZone, dropZone int, from, to time.Time) ([]domain.Ride, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pickup_zone_id, drop_zone_id, pickup_time, no_of_passengers
		FROM rides
		WHERE pickup_zone_id = ? AND drop_zone_id = ?
		  AND pickup_time >= ? AND pickup_time <= ?
		ORDER BY pickup_time ASC
	`, pickupZone, dropZone, from, to)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		var ride domain.Ride
		if err := rows.Scan(&ride.ID, &ride.PickupZone, &ride.DropZone, &ride.PickupTime, &ride.Passengers); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan ride row: %w", err)
		}
		rides = append(rides, ride)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("sqlite: ride rows iteration: %w", rows.Err())
	}
	return rides, nil
}

// InsertRide adds an active ride to the matching pool.
func (r *SQLiteRepository) InsertRide(ctx context.Context, ride domain.Ride) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rides (pickup_zone_id, drop_zone_id, pickup_time, no_of_passengers)
		VALUES (?, ?, ?, ?)
	`, ride.PickupZone, ride.DropZone, ride.PickupTime, ride.Passengers)
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert ride: %w", err)
	}
	return nil
}

// Health checks database connectivity.
func (r *SQLiteRepository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}
