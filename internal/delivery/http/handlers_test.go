package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rideback/backend/internal/domain"
	"github.com/rideback/backend/internal/service"
)

// fakeRepo is an in-memory DataRepository for handler tests. The
// mutex matters because CompleteRide appends trips from a goroutine.
type fakeRepo struct {
	mu    sync.Mutex
	zones []domain.Zone
	trips []domain.Trip
	rides []domain.Ride
}

func fptr(v float64) *float64 { return &v }

func (f *fakeRepo) ListZones(ctx context.Context) ([]domain.Zone, error) { return f.zones, nil }

func (f *fakeRepo) GetZone(ctx context.Context, id int) (domain.Zone, error) {
	for _, z := range f.zones {
		if z.ID == id {
			return z, nil
		}
	}
	return domain.Zone{}, domain.ErrZoneNotFound
}

func (f *fakeRepo) LoadTrips(ctx context.Context) ([]domain.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Trip, len(f.trips))
	copy(out, f.trips)
	return out, nil
}

func (f *fakeRepo) CountTrips(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.trips)), nil
}

func (f *fakeRepo) InsertTrip(ctx context.Context, trip domain.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips = append(f.trips, trip)
	return nil
}

func (f *fakeRepo) ListRidesBetween(ctx context.Context, pickupZone, dropZone int, from, to time.Time) ([]domain.Ride, error) {
	var out []domain.Ride
	for _, r := range f.rides {
		if r.PickupZone == pickupZone && r.DropZone == dropZone &&
			!r.PickupTime.Before(from) && !r.PickupTime.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertRide(ctx context.Context, ride domain.Ride) error {
	f.rides = append(f.rides, ride)
	return nil
}

func (f *fakeRepo) Health(ctx context.Context) error { return nil }

func testRepo() *fakeRepo {
	base := time.Date(2023, 10, 2, 8, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		zones: []domain.Zone{
			{ID: 1, Name: "Manhattan - Midtown", Borough: "Manhattan", CentroidLat: fptr(40.7549), CentroidLon: fptr(-73.9840)},
			{ID: 2, Name: "Brooklyn - Downtown", Borough: "Brooklyn", CentroidLat: fptr(40.6943), CentroidLon: fptr(-73.9859)},
			{ID: 3, Name: "Queens - Astoria", Borough: "Queens", CentroidLat: fptr(40.7644), CentroidLon: fptr(-73.9235)},
		},
	}
	// Enough trips to fit a model: zone 3 dominates.
	for day := 0; day < 10; day++ {
		for i := 0; i < 8; i++ {
			repo.trips = append(repo.trips, domain.Trip{
				PickupTime: base.AddDate(0, 0, day).Add(time.Duration(i) * time.Minute),
				PickupZone: 3, DropZone: 1, Passengers: 1,
			})
		}
		repo.trips = append(repo.trips,
			domain.Trip{PickupTime: base.AddDate(0, 0, day), PickupZone: 1, DropZone: 3, Passengers: 1},
			domain.Trip{PickupTime: base.AddDate(0, 0, day).Add(6 * time.Hour), PickupZone: 2, DropZone: 1, Passengers: 2},
		)
	}
	return repo
}

// newTestApp wires the full handler stack over a fake repository.
func newTestApp(t *testing.T, repo *fakeRepo, train bool) *fiber.App {
	t.Helper()

	cache := service.NewRecommendationCache("")
	demandSvc := service.NewDemandService(repo, cache)
	matchSvc := service.NewMatchService(repo, 90*time.Minute)
	trainingSvc := service.NewTrainingService(repo, demandSvc, t.TempDir())

	if train {
		if _, err := trainingSvc.Train(context.Background()); err != nil {
			t.Fatalf("fixture training failed: %v", err)
		}
	}

	app := fiber.New()
	SetupRoutes(app, repo, matchSvc, demandSvc, trainingSvc)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, testRepo(), true)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "healthy" {
		t.Errorf("health status = %v, want healthy", body["status"])
	}
	if n, ok := body["trip_log_size"].(float64); !ok || n <= 0 {
		t.Errorf("trip_log_size = %v, want a positive count", body["trip_log_size"])
	}
}

func TestHealthCheckDegradedWithoutModel(t *testing.T) {
	app := newTestApp(t, testRepo(), false)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "degraded" {
		t.Errorf("health status = %v, want degraded (no model loaded)", body["status"])
	}
}

func TestListZones(t *testing.T) {
	app := newTestApp(t, testRepo(), false)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/zones", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["count"] != float64(3) {
		t.Errorf("count = %v, want 3", body["count"])
	}
}

func TestCompleteRideValidation(t *testing.T) {
	app := newTestApp(t, testRepo(), true)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing cab_id", map[string]interface{}{
			"pickup_zone_id": 1, "drop_zone_id": 2, "drop_time": "2023-10-02T14:00:00Z",
		}},
		{"missing zones", map[string]interface{}{
			"cab_id": "C1", "drop_time": "2023-10-02T14:00:00Z",
		}},
		{"same zones", map[string]interface{}{
			"cab_id": "C1", "pickup_zone_id": 1, "drop_zone_id": 1, "drop_time": "2023-10-02T14:00:00Z",
		}},
		{"missing drop_time", map[string]interface{}{
			"cab_id": "C1", "pickup_zone_id": 1, "drop_zone_id": 2,
		}},
		{"bad drop_time", map[string]interface{}{
			"cab_id": "C1", "pickup_zone_id": 1, "drop_zone_id": 2, "drop_time": "yesterday",
		}},
		{"unknown zone", map[string]interface{}{
			"cab_id": "C1", "pickup_zone_id": 99, "drop_zone_id": 2, "drop_time": "2023-10-02T14:00:00Z",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/complete_ride", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestCompleteRideReturnsMatch(t *testing.T) {
	repo := testRepo()
	dropTime := time.Date(2023, 10, 12, 14, 0, 0, 0, time.UTC)
	repo.rides = append(repo.rides, domain.Ride{
		PickupZone: 2, DropZone: 1,
		PickupTime: dropTime.Add(20 * time.Minute), Passengers: 2,
	})
	app := newTestApp(t, repo, true)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/complete_ride", map[string]interface{}{
		"cab_id":         "C42",
		"pickup_zone_id": 1,
		"drop_zone_id":   2,
		"drop_time":      dropTime.Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "match found" {
		t.Fatalf("status = %v, want match found", body["status"])
	}
	details, ok := body["ride_details"].(map[string]interface{})
	if !ok {
		t.Fatalf("ride_details missing: %v", body)
	}
	if details["pickup"] != "Brooklyn - Downtown" {
		t.Errorf("match pickup = %v, want Brooklyn - Downtown", details["pickup"])
	}
}

func TestCompleteRideSuggestsZonesWhenNoMatch(t *testing.T) {
	app := newTestApp(t, testRepo(), true)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/complete_ride", map[string]interface{}{
		"cab_id":         "C42",
		"pickup_zone_id": 1,
		"drop_zone_id":   2,
		"drop_time":      "2023-10-12T14:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "no match found" {
		t.Fatalf("status = %v, want no match found", body["status"])
	}
	suggested, ok := body["suggested_zones"].([]interface{})
	if !ok {
		t.Fatalf("suggested_zones missing: %v", body)
	}
	if len(suggested) == 0 || len(suggested) > 3 {
		t.Fatalf("suggested zones = %d, want 1..3", len(suggested))
	}
	top, _ := suggested[0].(map[string]interface{})
	if top["zone_id"] != float64(3) {
		t.Errorf("top suggestion = %v, want zone 3 (dominant demand)", top["zone_id"])
	}
}

func TestCompleteRideDegradedWithoutModel(t *testing.T) {
	app := newTestApp(t, testRepo(), false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/complete_ride", map[string]interface{}{
		"cab_id":         "C42",
		"pickup_zone_id": 1,
		"drop_zone_id":   2,
		"drop_time":      "2023-10-12T14:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 even without a model", resp.StatusCode)
	}
	suggested, _ := body["suggested_zones"].([]interface{})
	if len(suggested) != 0 {
		t.Errorf("suggested zones without model = %d, want 0", len(suggested))
	}
}

func TestRecommendationsEndpoint(t *testing.T) {
	app := newTestApp(t, testRepo(), true)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/recommendations?zone_id=1&k=2&at=2023-10-12T09:00:00Z", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
}

func TestRecommendationsRequiresZoneID(t *testing.T) {
	app := newTestApp(t, testRepo(), true)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/recommendations", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/recommendations?zone_id=99", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown zone status = %d, want 400", resp.StatusCode)
	}
}

func TestTrainEndpoint(t *testing.T) {
	app := newTestApp(t, testRepo(), false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/train", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["zones"] != float64(3) {
		t.Errorf("zones = %v, want 3", body["zones"])
	}
}

func TestTrainEndpointEmptyTripLog(t *testing.T) {
	repo := &fakeRepo{zones: testRepo().zones}
	app := newTestApp(t, repo, false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/train", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
