// Package geo provides the distance and coordinate-conversion math used
// by the zone ranker. Zone centroids are normally WGS-84 degrees, but
// catalogs built from the NYC taxi-zone shapefile arrive in the state
// plane grid (EPSG:2263, US survey feet) and must be reprojected first.
package geo

import "math"

// EarthRadiusMeters is the mean earth radius used by the haversine
// formula.
const EarthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance in meters between
// two WGS-84 coordinates.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// LooksProjected reports whether a coordinate pair cannot be WGS-84
// degrees. Magnitudes beyond valid lat/lon ranges mean the value is in
// a projected grid.
func LooksProjected(lat, lon float64) bool {
	return math.Abs(lat) > 90 || math.Abs(lon) > 180
}

// EPSG:2263 — NAD83 / New York Long Island (ftUS), Lambert conformal
// conic with two standard parallels on the GRS80 ellipsoid.
const (
	grs80A       = 6378137.0
	grs80F       = 1.0 / 298.257222101
	usSurveyFoot = 1200.0 / 3937.0 // meters

	nyLatOrigin  = 40.0 + 10.0/60.0 // 40°10'N
	nyLonOrigin  = -74.0            // 74°W
	nyParallel1  = 40.0 + 40.0/60.0 // 40°40'N
	nyParallel2  = 41.0 + 2.0/60.0  // 41°02'N
	nyFalseEast  = 984250.0         // ftUS
	nyFalseNorth = 0.0
)

// lccConstants holds the precomputed projection constants n, F, rho0
// and the ellipsoid eccentricity.
type lccConstants struct {
	e, n, f, rho0 float64
}

func newNYLongIslandConstants() lccConstants {
	e2 := 2*grs80F - grs80F*grs80F
	e := math.Sqrt(e2)

	phi0 := nyLatOrigin * math.Pi / 180
	phi1 := nyParallel1 * math.Pi / 180
	phi2 := nyParallel2 * math.Pi / 180

	m := func(phi float64) float64 {
		s := math.Sin(phi)
		return math.Cos(phi) / math.Sqrt(1-e2*s*s)
	}
	tfn := func(phi float64) float64 {
		s := math.Sin(phi)
		return math.Tan(math.Pi/4-phi/2) /
			math.Pow((1-e*s)/(1+e*s), e/2)
	}

	m1, m2 := m(phi1), m(phi2)
	t0, t1, t2 := tfn(phi0), tfn(phi1), tfn(phi2)

	n := (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	f := m1 / (n * math.Pow(t1, n))
	rho0 := grs80A * f * math.Pow(t0, n)

	return lccConstants{e: e, n: n, f: f, rho0: rho0}
}

var nyLongIsland = newNYLongIslandConstants()

// NYLongIslandToWGS84 converts EPSG:2263 easting/northing in US survey
// feet to WGS-84 latitude/longitude in degrees (inverse Lambert
// conformal conic; NAD83 to WGS-84 datum shift is below centroid
// precision and ignored).
func NYLongIslandToWGS84(easting, northing float64) (lat, lon float64) {
	c := nyLongIsland

	x := (easting - nyFalseEast) * usSurveyFoot
	y := (northing - nyFalseNorth) * usSurveyFoot

	rho := math.Sqrt(x*x + (c.rho0-y)*(c.rho0-y))
	if c.n < 0 {
		rho = -rho
	}
	t := math.Pow(rho/(grs80A*c.f), 1/c.n)
	theta := math.Atan2(x, c.rho0-y)

	// Latitude by fixed-point iteration; converges in a handful of
	// rounds for any point on the ellipsoid.
	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 10; i++ {
		s := math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-c.e*s)/(1+c.e*s), c.e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}

	lat = phi * 180 / math.Pi
	lon = (theta/c.n)*180/math.Pi + nyLonOrigin
	return lat, lon
}
