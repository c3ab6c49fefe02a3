package domain

// Zone is a named geographic catchment area with a stable integer id.
// Centroid coordinates are optional: catalogs built from plain CSV may
// not carry them, in which case distance ranking degrades gracefully.
type Zone struct {
	ID          int      `json:"location_id"`
	Name        string   `json:"zone"`
	Borough     string   `json:"borough"`
	CentroidLat *float64 `json:"centroid_lat,omitempty"`
	CentroidLon *float64 `json:"centroid_lon,omitempty"`
}

// HasCentroid reports whether both centroid coordinates are present.
func (z Zone) HasCentroid() bool {
	return z.CentroidLat != nil && z.CentroidLon != nil
}

// Recommendation is one ranked zone suggestion. Distance is meters from
// the reference zone centroid, or -1 when either centroid is unknown.
type Recommendation struct {
	ZoneID          int     `json:"zone_id"`
	Zone            string  `json:"zone"`
	Borough         string  `json:"borough"`
	PredictedDemand float64 `json:"predicted_demand"`
	Probability     float64 `json:"probability"`
	DistanceMeters  float64 `json:"distance_meters"`
}
