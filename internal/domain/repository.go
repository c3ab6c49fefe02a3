package domain

import (
	"context"
	"errors"
	"time"
)

// ErrZoneNotFound is returned when a zone id is absent from the catalog.
var ErrZoneNotFound = errors.New("zone not found")

// DataRepository defines the interface for data persistence.
// This follows the Dependency Inversion Principle - domain defines the
// interface, storage backends (postgres, sqlite, csv) implement it.
type DataRepository interface {
	// ListZones returns the full zone catalog ordered by id.
	ListZones(ctx context.Context) ([]Zone, error)

	// GetZone returns one zone or ErrZoneNotFound.
	GetZone(ctx context.Context, id int) (Zone, error)

	// LoadTrips returns all trips with a non-null pickup time.
	LoadTrips(ctx context.Context) ([]Trip, error)

	// CountTrips returns the size of the trip log.
	CountTrips(ctx context.Context) (int64, error)

	// InsertTrip appends one trip to the log.
	InsertTrip(ctx context.Context, trip Trip) error

	// ListRidesBetween returns active rides from pickupZone to dropZone
	// with pickup_time in [from, to], ordered ascending by pickup_time.
	ListRidesBetween(ctx context.Context, pickupZone, dropZone int, from, to time.Time) ([]Ride, error)

	// InsertRide adds an active ride to the matching pool.
	InsertRide(ctx context.Context, ride Ride) error

	// Health checks store connectivity.
	Health(ctx context.Context) error
}
