package domain

import "time"

// Trip is one historical taxi trip. Trips are append-only and feed the
// demand model; only the pickup side matters for training.
type Trip struct {
	PickupTime  time.Time  `json:"pickup_time"`
	DropoffTime *time.Time `json:"dropoff_time,omitempty"`
	PickupZone  int        `json:"pickup_zone_id"`
	DropZone    int        `json:"drop_zone_id"`
	Passengers  int        `json:"no_of_passengers"`
}

// Ride is an active ride waiting for pickup, the pool searched for
// return-trip matches.
type Ride struct {
	ID         int64     `json:"id,omitempty"`
	PickupZone int       `json:"pickup_zone_id"`
	DropZone   int       `json:"drop_zone_id"`
	PickupTime time.Time `json:"pickup_time"`
	Passengers int       `json:"no_of_passengers"`
}

// CompletedRide is a driver-submitted finished ride. It is appended to
// the trip log and immediately used to query return suggestions.
type CompletedRide struct {
	CabID      string    `json:"cab_id"`
	PickupZone int       `json:"pickup_zone_id"`
	DropZone   int       `json:"drop_zone_id"`
	PickupTime time.Time `json:"pickup_time"`
	DropTime   time.Time `json:"drop_time"`
	Passengers int       `json:"no_of_passengers"`
}

// ReturnMatch is an active ride heading back in the opposite direction
// within the match window, with zone names resolved for display.
type ReturnMatch struct {
	PickupZoneID int       `json:"pickup_zone_id"`
	DropZoneID   int       `json:"drop_zone_id"`
	PickupZone   string    `json:"pickup"`
	DropZone     string    `json:"drop"`
	PickupTime   time.Time `json:"pickup_time"`
	Passengers   int       `json:"passengers"`
}
