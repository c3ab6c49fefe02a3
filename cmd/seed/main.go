package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/rideback/backend/internal/domain"
	"github.com/rideback/backend/internal/repository/sqlite"
	"github.com/rideback/backend/pkg/utils"
)

// seedZone is one catalog entry with a WGS-84 centroid.
type seedZone struct {
	name    string
	borough string
	lat     float64
	lon     float64
	weight  float64
}

// The NYC zone catalog. Weights skew synthetic pickups toward the
// busier boroughs.
var zones = []seedZone{
	{"Manhattan - Downtown", "Manhattan", 40.7135, -74.0066, 3.0},
	{"Manhattan - Midtown", "Manhattan", 40.7549, -73.9840, 4.0},
	{"Manhattan - Upper East Side", "Manhattan", 40.7736, -73.9566, 2.5},
	{"Manhattan - Upper West Side", "Manhattan", 40.7870, -73.9754, 2.5},
	{"Manhattan - Harlem", "Manhattan", 40.8116, -73.9465, 1.5},
	{"Manhattan - Financial District", "Manhattan", 40.7075, -74.0113, 3.0},
	{"Manhattan - Chelsea", "Manhattan", 40.7465, -74.0014, 2.5},
	{"Manhattan - Greenwich Village", "Manhattan", 40.7336, -74.0027, 2.5},
	{"Brooklyn - Downtown", "Brooklyn", 40.6943, -73.9859, 2.0},
	{"Brooklyn - Williamsburg", "Brooklyn", 40.7081, -73.9571, 2.0},
	{"Brooklyn - Park Slope", "Brooklyn", 40.6710, -73.9814, 1.5},
	{"Brooklyn - Bay Ridge", "Brooklyn", 40.6262, -74.0331, 1.0},
	{"Brooklyn - Crown Heights", "Brooklyn", 40.6681, -73.9442, 1.2},
	{"Brooklyn - Bushwick", "Brooklyn", 40.6944, -73.9213, 1.2},
	{"Brooklyn - Bedford-Stuyvesant", "Brooklyn", 40.6872, -73.9418, 1.2},
	{"Queens - Astoria", "Queens", 40.7644, -73.9235, 1.5},
	{"Queens - Long Island City", "Queens", 40.7447, -73.9485, 1.8},
	{"Queens - Flushing", "Queens", 40.7675, -73.8331, 1.2},
	{"Queens - Jamaica", "Queens", 40.7027, -73.7890, 1.2},
	{"Queens - Forest Hills", "Queens", 40.7196, -73.8448, 1.0},
	{"Queens - Jackson Heights", "Queens", 40.7557, -73.8831, 1.2},
	{"Bronx - South Bronx", "Bronx", 40.8170, -73.9200, 1.0},
	{"Bronx - North Bronx", "Bronx", 40.8860, -73.8600, 0.7},
	{"Bronx - Fordham", "Bronx", 40.8592, -73.8985, 0.8},
	{"Bronx - Pelham Bay", "Bronx", 40.8500, -73.8210, 0.6},
	{"Bronx - Riverdale", "Bronx", 40.8901, -73.9123, 0.6},
	{"Staten Island - North", "Staten Island", 40.6318, -74.1000, 0.5},
	{"Staten Island - South", "Staten Island", 40.5253, -74.1721, 0.3},
	{"Staten Island - Mid-Island", "Staten Island", 40.5795, -74.1502, 0.4},
}

// weekdayHourWeight shapes pickup volume over the day: commuter peaks
// around 08:00 and 18:00, a quiet stretch overnight.
var weekdayHourWeight = [24]float64{
	0.4, 0.3, 0.2, 0.2, 0.3, 0.6,
	1.2, 2.2, 3.0, 2.4, 1.6, 1.4,
	1.5, 1.4, 1.3, 1.5, 2.0, 2.8,
	3.2, 2.6, 1.8, 1.4, 1.0, 0.6,
}

// weekendHourWeight is flatter with a late-evening bump.
var weekendHourWeight = [24]float64{
	1.0, 0.9, 0.7, 0.5, 0.3, 0.3,
	0.4, 0.6, 0.8, 1.1, 1.4, 1.7,
	1.9, 2.0, 2.0, 1.9, 1.8, 1.9,
	2.1, 2.3, 2.4, 2.4, 2.0, 1.5,
}

func main() {
	var (
		dbPath = flag.String("db", "data/data.db", "SQLite database path")
		nTrips = flag.Int("trips", 20000, "number of historical trips to generate")
		nRides = flag.Int("rides", 500, "number of active rides to generate")
		days   = flag.Int("days", 90, "trip history length in days")
		seed   = flag.Int64("seed", 1, "random seed")
	)
	flag.Parse()

	repo, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Could not open SQLite store: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))

	if err := seedZones(ctx, repo); err != nil {
		log.Fatalf("Seeding zones failed: %v", err)
	}
	log.Printf("Seeded %d zones", len(zones))

	inserted, err := seedTrips(ctx, repo, rng, *nTrips, *days)
	if err != nil {
		log.Fatalf("Seeding trips failed: %v", err)
	}
	log.Printf("Seeded %d trips over %d days", inserted, *days)

	if err := seedRides(ctx, repo, rng, *nRides); err != nil {
		log.Fatalf("Seeding rides failed: %v", err)
	}
	log.Printf("Seeded %d active rides", *nRides)
}

func seedZones(ctx context.Context, repo *sqlite.SQLiteRepository) error {
	for i, z := range zones {
		lat, lon := z.lat, z.lon
		zone := domain.Zone{
			ID:          i + 1,
			Name:        z.name,
			Borough:     z.borough,
			CentroidLat: &lat,
			CentroidLon: &lon,
		}
		if err := repo.InsertZone(ctx, zone); err != nil {
			return err
		}
	}
	return nil
}

func seedTrips(ctx context.Context, repo *sqlite.SQLiteRepository, rng *rand.Rand, n, days int) (int, error) {
	start := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	trips := make([]domain.Trip, 0, n)
	for i := 0; i < n; i++ {
		day := rng.Intn(days)
		pickupDay := start.AddDate(0, 0, day)
		hour := pickHour(rng, isWeekend(pickupDay))
		pickup := pickupDay.Add(time.Duration(hour)*time.Hour +
			time.Duration(rng.Intn(60))*time.Minute +
			time.Duration(rng.Intn(60))*time.Second)

		pickupZone := pickZone(rng)
		dropZone := pickZone(rng)
		for dropZone == pickupZone {
			dropZone = pickZone(rng)
		}

		dropoff := pickup.Add(time.Duration(10+rng.Intn(41)) * time.Minute)
		passengers := int(utils.Clamp(1+rng.NormFloat64()*1.2, 1, 4))

		trips = append(trips, domain.Trip{
			PickupTime:  pickup,
			DropoffTime: &dropoff,
			PickupZone:  pickupZone,
			DropZone:    dropZone,
			Passengers:  passengers,
		})
	}

	return repo.InsertTrips(ctx, trips)
}

func seedRides(ctx context.Context, repo *sqlite.SQLiteRepository, rng *rand.Rand, n int) error {
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		pickupZone := pickZone(rng)
		dropZone := pickZone(rng)
		for dropZone == pickupZone {
			dropZone = pickZone(rng)
		}

		ride := domain.Ride{
			PickupZone: pickupZone,
			DropZone:   dropZone,
			PickupTime: now.Add(time.Duration(rng.Intn(24*60)) * time.Minute),
			Passengers: 1 + rng.Intn(4),
		}
		if err := repo.InsertRide(ctx, ride); err != nil {
			return err
		}
	}
	return nil
}

// pickZone draws a zone ID weighted by borough busyness.
func pickZone(rng *rand.Rand) int {
	var total float64
	for _, z := range zones {
		total += z.weight
	}
	r := rng.Float64() * total
	for i, z := range zones {
		r -= z.weight
		if r < 0 {
			return i + 1
		}
	}
	return len(zones)
}

// pickHour draws an hour of day from the demand curve.
func pickHour(rng *rand.Rand, weekend bool) int {
	weights := weekdayHourWeight
	if weekend {
		weights = weekendHourWeight
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for h, w := range weights {
		r -= w
		if r < 0 {
			return h
		}
	}
	return 23
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
