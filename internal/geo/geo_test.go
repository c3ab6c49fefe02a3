package geo

import (
	"math"
	"testing"
)

func TestHaversineZeroForIdenticalPoints(t *testing.T) {
	if d := HaversineMeters(40.7484, -73.9857, 40.7484, -73.9857); d != 0 {
		t.Errorf("distance for identical points = %v, want 0", d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	d1 := HaversineMeters(40.7484, -73.9857, 40.6892, -74.0445)
	d2 := HaversineMeters(40.6892, -74.0445, 40.7484, -73.9857)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("not symmetric: %v vs %v", d1, d2)
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantMeters             float64
		tolerance              float64
	}{
		// Empire State Building to Statue of Liberty, roughly 8.2 km.
		{"midtown to liberty island", 40.7484, -73.9857, 40.6892, -74.0445, 8240, 300},
		// One degree of latitude is about 111.2 km.
		{"one degree latitude", 40.0, -74.0, 41.0, -74.0, 111195, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantMeters) > tt.tolerance {
				t.Errorf("distance = %.0f m, want %.0f ± %.0f", got, tt.wantMeters, tt.tolerance)
			}
		})
	}
}

func TestLooksProjected(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{40.7, -74.0, false},
		{-90, 180, false},
		{91, 0, true},
		{0, -181, true},
		{212000, 987000, true}, // state plane feet
	}
	for _, tt := range tests {
		if got := LooksProjected(tt.lat, tt.lon); got != tt.want {
			t.Errorf("LooksProjected(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestNYLongIslandInverseAtFalseOrigin(t *testing.T) {
	// The false origin maps back exactly to the projection origin
	// (40°10'N, 74°W).
	lat, lon := NYLongIslandToWGS84(984250.0, 0.0)
	if math.Abs(lat-(40.0+10.0/60.0)) > 1e-7 {
		t.Errorf("lat = %v, want %v", lat, 40.0+10.0/60.0)
	}
	if math.Abs(lon-(-74.0)) > 1e-7 {
		t.Errorf("lon = %v, want -74", lon)
	}
}

func TestNYLongIslandInverseWithinNYC(t *testing.T) {
	// State plane coordinates across the five boroughs must land in the
	// NYC bounding box.
	points := []struct{ easting, northing float64 }{
		{988000, 212000}, // midtown Manhattan
		{1005000, 185000},
		{960000, 150000},
		{1040000, 215000},
	}
	for _, p := range points {
		lat, lon := NYLongIslandToWGS84(p.easting, p.northing)
		if lat < 40.4 || lat > 41.0 || lon < -74.3 || lon > -73.6 {
			t.Errorf("(%v, %v) -> (%v, %v) outside NYC bounds", p.easting, p.northing, lat, lon)
		}
	}
}

func TestNYLongIslandInverseMonotonic(t *testing.T) {
	// Moving east increases longitude; moving north increases latitude.
	lat1, lon1 := NYLongIslandToWGS84(980000, 200000)
	lat2, lon2 := NYLongIslandToWGS84(1000000, 200000)
	lat3, lon3 := NYLongIslandToWGS84(980000, 220000)
	if lon2 <= lon1 {
		t.Errorf("eastward move did not increase longitude: %v -> %v", lon1, lon2)
	}
	if lat3 <= lat1 {
		t.Errorf("northward move did not increase latitude: %v -> %v", lat1, lat3)
	}
	if math.Abs(lat2-lat1) > 0.05 {
		t.Errorf("pure eastward move shifted latitude too much: %v -> %v", lat1, lat2)
	}
	_ = lon3
}
