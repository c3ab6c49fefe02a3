// Package csvstore is the last-resort storage backend: plain CSV files
// under a data directory, loaded into memory at startup. It keeps the
// service usable on a checkout that has no database at all.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rideback/backend/internal/domain"
)

const (
	zonesFile = "taxi_zones.csv"
	tripsFile = "trips.csv"
	ridesFile = "rides.csv"
)

// timeLayouts are accepted pickup/dropoff time formats, most specific
// first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// CSVRepository implements domain.DataRepository over CSV files.
type CSVRepository struct {
	dir string

	mu    sync.RWMutex
	zones []domain.Zone
	trips []domain.Trip
	rides []domain.Ride
}

// Open loads the CSV files under dir. A missing trips or rides file is
// tolerated (empty dataset); a missing zones file is an error because
// nothing works without the catalog.
func Open(dir string) (*CSVRepository, error) {
	r := &CSVRepository{dir: dir}

	zones, err := loadZones(filepath.Join(dir, zonesFile))
	if err != nil {
		return nil, err
	}
	r.zones = zones

	if trips, err := loadTrips(filepath.Join(dir, tripsFile)); err == nil {
		r.trips = trips
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if rides, err := loadRides(filepath.Join(dir, ridesFile)); err == nil {
		r.rides = rides
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return r, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("csvstore: unparseable time %q", s)
}

func loadZones(path string) ([]domain.Zone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvstore: open zones: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csvstore: read zones header: %w", err)
	}
	col := indexColumns(header)

	var zones []domain.Zone
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvstore: read zones row: %w", err)
		}

		id, err := strconv.Atoi(field(rec, col, "locationid"))
		if err != nil {
			continue // skip malformed rows, same as the store's other loaders
		}
		z := domain.Zone{
			ID:      id,
			Name:    field(rec, col, "zone"),
			Borough: field(rec, col, "borough"),
		}
		if lat, err := strconv.ParseFloat(field(rec, col, "centroid_lat"), 64); err == nil {
			if lon, err := strconv.ParseFloat(field(rec, col, "centroid_lon"), 64); err == nil {
				z.CentroidLat = &lat
				z.CentroidLon = &lon
			}
		}
		zones = append(zones, z)
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones, nil
}

func loadTrips(path string) ([]domain.Trip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csvstore: read trips header: %w", err)
	}
	col := indexColumns(header)

	var trips []domain.Trip
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvstore: read trips row: %w", err)
		}

		pickup, err := parseTime(field(rec, col, "pickup_time"))
		if err != nil {
			continue
		}
		pickupZone, err := strconv.Atoi(field(rec, col, "pickup_zone_id"))
		if err != nil {
			continue
		}
		t := domain.Trip{PickupTime: pickup, PickupZone: pickupZone}
		if dz, err := strconv.Atoi(field(rec, col, "drop_zone_id")); err == nil {
			t.DropZone = dz
		}
		if p, err := strconv.Atoi(field(rec, col, "no_of_passengers")); err == nil {
			t.Passengers = p
		}
		if drop, err := parseTime(field(rec, col, "dropoff_time")); err == nil {
			t.DropoffTime = &drop
		}
		trips = append(trips, t)
	}
	return trips, nil
}

func loadRides(path string) ([]domain.Ride, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csvstore: read rides header: %w", err)
	}
	col := indexColumns(header)

	var rides []domain.Ride
	var nextID int64 = 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvstore: read rides row: %w", err)
		}

		pickup, err := parseTime(field(rec, col, "pickup_time"))
		if err != nil {
			continue
		}
		pz, err1 := strconv.Atoi(field(rec, col, "pickup_zone_id"))
		dz, err2 := strconv.Atoi(field(rec, col, "drop_zone_id"))
		if err1 != nil || err2 != nil {
			continue
		}
		ride := domain.Ride{ID: nextID, PickupZone: pz, DropZone: dz, PickupTime: pickup}
		if p, err := strconv.Atoi(field(rec, col, "no_of_passengers")); err == nil {
			ride.Passengers = p
		}
		rides = append(rides, ride)
		nextID++
	}
	return rides, nil
}

func indexColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[normalize(name)] = i
	}
	return col
}

func normalize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// ListZones returns the zone catalog ordered by id.
func (r *CSVRepository) ListZones(ctx context.Context) ([]domain.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Zone(nil), r.zones...), nil
}

// GetZone returns one zone or domain.ErrZoneNotFound.
func (r *CSVRepository) GetZone(ctx context.Context, id int) (domain.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, z := range r.zones {
		if z.ID == id {
			return z, nil
		}
	}
	return domain.Zone{}, domain.ErrZoneNotFound
}

// LoadTrips returns all loaded trips.
func (r *CSVRepository) LoadTrips(ctx context.Context) ([]domain.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Trip(nil), r.trips...), nil
}

// CountTrips returns the size of the trip log.
func (r *CSVRepository) CountTrips(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.trips)), nil
}

// InsertTrip appends a trip to memory and to trips.csv.
func (r *CSVRepository) InsertTrip(ctx context.Context, trip domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropoff := ""
	if trip.DropoffTime != nil {
		dropoff = trip.DropoffTime.Format(time.RFC3339)
	}
	rec := []string{
		trip.PickupTime.Format(time.RFC3339),
		dropoff,
		strconv.Itoa(trip.PickupZone),
		strconv.Itoa(trip.DropZone),
		strconv.Itoa(trip.Passengers),
	}
	header := []string{"pickup_time", "dropoff_time", "pickup_zone_id", "drop_zone_id", "no_of_passengers"}
	if err := appendRecord(filepath.Join(r.dir, tripsFile), header, rec); err != nil {
		return err
	}
	r.trips = append(r.trips, trip)
	return nil
}

// ListRidesBetween filters the in-memory ride pool, ordered ascending
// by pickup time.
func (r *CSVRepository) ListRidesBetween(ctx context.Context, pickupZone, dropZone int, from, to time.Time) ([]domain.Ride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Ride
	for _, ride := range r.rides {
		if ride.PickupZone != pickupZone || ride.DropZone != dropZone {
			continue
		}
		if ride.PickupTime.Before(from) || ride.PickupTime.After(to) {
			continue
		}
		out = append(out, ride)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupTime.Before(out[j].PickupTime) })
	return out, nil
}

// InsertRide appends a ride to memory and to rides.csv.
func (r *CSVRepository) InsertRide(ctx context.Context, ride domain.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := []string{
		strconv.Itoa(ride.PickupZone),
		strconv.Itoa(ride.DropZone),
		ride.PickupTime.Format(time.RFC3339),
		strconv.Itoa(ride.Passengers),
	}
	header := []string{"pickup_zone_id", "drop_zone_id", "pickup_time", "no_of_passengers"}
	if err := appendRecord(filepath.Join(r.dir, ridesFile), header, rec); err != nil {
		return err
	}
	ride.ID = int64(len(r.rides) + 1)
	r.rides = append(r.rides, ride)
	return nil
}

// Health verifies the data directory is still readable.
func (r *CSVRepository) Health(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(r.dir, zonesFile)); err != nil {
		return fmt.Errorf("csvstore: health check failed: %w", err)
	}
	return nil
}

// appendRecord appends one CSV record, writing the header first when
// the file does not exist yet.
func appendRecord(path string, header, rec []string) error {
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csvstore: open %s for append: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("csvstore: write header: %w", err)
		}
	}
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("csvstore: write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvstore: flush: %w", err)
	}
	return nil
}
