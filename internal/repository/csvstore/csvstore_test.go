package csvstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rideback/backend/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestStore(t *testing.T) (*CSVRepository, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "taxi_zones.csv",
		"LocationID,zone,borough,centroid_lat,centroid_lon\n"+
			"2,Brooklyn - Downtown,Brooklyn,40.6943,-73.9859\n"+
			"1,Manhattan - Midtown,Manhattan,40.7549,-73.9840\n"+
			"3,Queens - Astoria,Queens,,\n")
	writeFile(t, dir, "trips.csv",
		"pickup_time,dropoff_time,pickup_zone_id,drop_zone_id,no_of_passengers\n"+
			"2023-10-02T09:00:00Z,2023-10-02T09:25:00Z,1,2,2\n"+
			"2023-10-02 10:00:00,,2,1,1\n"+
			"not-a-time,,1,2,1\n")
	writeFile(t, dir, "rides.csv",
		"pickup_zone_id,drop_zone_id,pickup_time,no_of_passengers\n"+
			"2,1,2023-10-02T15:00:00Z,1\n"+
			"2,1,2023-10-02T14:10:00Z,3\n"+
			"1,2,2023-10-02T14:20:00Z,2\n")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return repo, dir
}

func TestOpenRequiresZones(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error when taxi_zones.csv is missing")
	}
}

func TestOpenToleratesMissingTripsAndRides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "taxi_zones.csv", "LocationID,zone,borough\n1,Somewhere,Queens\n")

	repo, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	count, err := repo.CountTrips(context.Background())
	if err != nil || count != 0 {
		t.Errorf("CountTrips = (%d, %v), want (0, nil)", count, err)
	}
}

func TestZonesSortedAndOptionalCentroid(t *testing.T) {
	repo, _ := newTestStore(t)
	ctx := context.Background()

	zones, err := repo.ListZones(ctx)
	if err != nil {
		t.Fatalf("ListZones failed: %v", err)
	}
	if len(zones) != 3 {
		t.Fatalf("zones = %d, want 3", len(zones))
	}
	if zones[0].ID != 1 || zones[1].ID != 2 || zones[2].ID != 3 {
		t.Errorf("zones not sorted by id: %v %v %v", zones[0].ID, zones[1].ID, zones[2].ID)
	}
	if !zones[0].HasCentroid() || zones[2].HasCentroid() {
		t.Error("centroid presence wrong: zone 1 should have one, zone 3 should not")
	}

	if _, err := repo.GetZone(ctx, 42); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Errorf("GetZone(42) error = %v, want ErrZoneNotFound", err)
	}
}

func TestTripsSkipMalformedRows(t *testing.T) {
	repo, _ := newTestStore(t)

	trips, err := repo.LoadTrips(context.Background())
	if err != nil {
		t.Fatalf("LoadTrips failed: %v", err)
	}
	// The not-a-time row is dropped.
	if len(trips) != 2 {
		t.Fatalf("trips = %d, want 2", len(trips))
	}
	if trips[0].DropoffTime == nil {
		t.Error("first trip should have a dropoff time")
	}
	if trips[1].DropoffTime != nil {
		t.Error("second trip should have no dropoff time")
	}
}

func TestListRidesBetweenFiltersAndSorts(t *testing.T) {
	repo, _ := newTestStore(t)
	from := time.Date(2023, 10, 2, 14, 0, 0, 0, time.UTC)
	to := from.Add(90 * time.Minute)

	rides, err := repo.ListRidesBetween(context.Background(), 2, 1, from, to)
	if err != nil {
		t.Fatalf("ListRidesBetween failed: %v", err)
	}
	if len(rides) != 2 {
		t.Fatalf("rides = %d, want 2", len(rides))
	}
	if rides[0].Passengers != 3 {
		t.Errorf("first ride should be the 14:10 one, got %+v", rides[0])
	}
}

func TestInsertRidePersists(t *testing.T) {
	repo, dir := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2023, 10, 2, 16, 0, 0, 0, time.UTC)

	if err := repo.InsertRide(ctx, domain.Ride{PickupZone: 3, DropZone: 1, PickupTime: at, Passengers: 2}); err != nil {
		t.Fatalf("InsertRide failed: %v", err)
	}

	// Visible in memory.
	rides, err := repo.ListRidesBetween(ctx, 3, 1, at, at)
	if err != nil || len(rides) != 1 {
		t.Fatalf("inserted ride not found: (%d, %v)", len(rides), err)
	}

	// Visible after a reload from disk.
	reloaded, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	rides, err = reloaded.ListRidesBetween(ctx, 3, 1, at, at)
	if err != nil || len(rides) != 1 {
		t.Errorf("ride not persisted to rides.csv: (%d, %v)", len(rides), err)
	}
}

func TestInsertTripPersists(t *testing.T) {
	repo, dir := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2023, 10, 3, 8, 0, 0, 0, time.UTC)

	if err := repo.InsertTrip(ctx, domain.Trip{PickupTime: at, PickupZone: 1, DropZone: 3, Passengers: 1}); err != nil {
		t.Fatalf("InsertTrip failed: %v", err)
	}

	reloaded, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	count, err := reloaded.CountTrips(ctx)
	if err != nil {
		t.Fatalf("CountTrips failed: %v", err)
	}
	if count != 3 {
		t.Errorf("trips after reload = %d, want 3", count)
	}
}

func TestHealth(t *testing.T) {
	repo, dir := newTestStore(t)
	if err := repo.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "taxi_zones.csv")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Health(context.Background()); err == nil {
		t.Error("Health should fail once the catalog file is gone")
	}
}
