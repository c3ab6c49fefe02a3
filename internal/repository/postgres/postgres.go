package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rideback/backend/internal/domain"
)

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListZones returns the zone catalog ordered by id
func (r *PostgresRepository) ListZones(ctx context.Context) ([]domain.Zone, error) {
	query := `
		SELECT location_id, zone, borough, centroid_lat, centroid_lon
		FROM taxi_zones
		ORDER BY location_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Borough, &z.CentroidLat, &z.CentroidLon); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("postgres: zone rows iteration: %w", rows.Err())
	}

	return zones, nil
}

// GetZone returns one zone or domain.ErrZoneNotFound
func (r *PostgresRepository) GetZone(ctx context.Context, id int) (domain.Zone, error) {
	query := `
		SELECT location_id, zone, borough, centroid_lat, centroid_lon
		FROM taxi_zones
		WHERE location_id = $1
	`

	var z domain.Zone
	err := r.pool.QueryRow(ctx, query, id).Scan(&z.ID, &z.Name, &z.Borough, &z.CentroidLat, &z.CentroidLon)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	if err != nil {
		return domain.Zone{}, fmt.Errorf("postgres: failed to query zone %d: %w", id, err)
	}

	return z, nil
}

// LoadTrips returns all trips with a non-null pickup time
func (r *PostgresRepository) LoadTrips(ctx context.Context) ([]domain.Trip, error) {
	query := `
		SELECT pickup_time, dropoff_time, pickup_zone_id, drop_zone_id, no_of_passengers
		FROM trips
		WHERE pickup_time IS NOT NULL
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(&t.PickupTime, &t.DropoffTime, &t.PickupZone, &t.DropZone, &t.Passengers); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan trip row: %w", err)
		}
		trips = append(trips, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("postgres: trip rows iteration: %w", rows.Err())
	}

	return trips, nil
}

// CountTrips returns the size of the trip log
func (r *PostgresRepository) CountTrips(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count trips: %w", err)
	}
	return count, nil
}

// InsertTrip appends one trip to the log
func (r *PostgresRepository) InsertTrip(ctx context.Context, trip domain.Trip) error {
	query := `
		INSERT INTO trips (pickup_time, dropoff_time, pickup_zone_id, drop_zone_id, no_of_passengers)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		trip.PickupTime, trip.DropoffTime, trip.PickupZone, trip.DropZone, trip.Passengers,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert trip: %w", err)
	}

	return nil
}

// ListRidesBetween returns active rides on the given zone pair within
// the pickup window, ordered ascending by pickup time
func (r *PostgresRepository) ListRidesBetween(ctx context.Context, pickupZone, dropZone int, from, to time.Time) ([]domain.Ride, error) {
	query := `
		SELECT id, pickup_zone_id, drop_zone_id, pickup_time, no_of_passengers
		FROM rides
		WHERE pickup_zone_id = $1 AND drop_zone_id = $2
		  AND pickup_time >= $3 AND pickup_time <= $4
		ORDER BY pickup_time ASC
	`

	rows, err := r.pool.Query(ctx, query, pickupZone, dropZone, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		var ride domain.Ride
		if err := rows.Scan(&ride.ID, &ride.PickupZone, &ride.DropZone, &ride.PickupTime, &ride.Passengers); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan ride row: %w", err)
		}
		rides = append(rides, ride)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("postgres: ride rows iteration: %w", rows.Err())
	}

	return rides, nil
}

// InsertRide adds an active ride to the matching pool
func (r *PostgresRepository) InsertRide(ctx context.Context, ride domain.Ride) error {
	query := `
		INSERT INTO rides (pickup_zone_id, drop_zone_id, pickup_time, no_of_passengers)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query,
		ride.PickupZone, ride.DropZone, ride.PickupTime, ride.Passengers,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert ride: %w", err)
	}

	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
