package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rideback/backend/internal/domain"
	"github.com/rideback/backend/internal/geo"
	"github.com/rideback/backend/internal/metrics"
	"github.com/rideback/backend/internal/model"
	"github.com/rideback/backend/pkg/utils"
)

// cacheTTL bounds how long a ranked recommendation set may be reused.
// Rankings only depend on the hour bucket, so staleness within the
// bucket is harmless.
const cacheTTL = 15 * time.Minute

// DemandService scores zones with the demand model and ranks them by
// softmax probability, tie-broken by distance from a reference zone.
type DemandService struct {
	repo  DataRepository
	cache *RecommendationCache

	mu    sync.RWMutex
	model *model.Model
}

// NewDemandService creates a new demand service. cache may be a
// disabled (no Redis) cache.
func NewDemandService(repo DataRepository, cache *RecommendationCache) *DemandService {
	return &DemandService{repo: repo, cache: cache}
}

// SetModel swaps in a newly trained model.
func (s *DemandService) SetModel(m *model.Model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

// Model returns the current model, or nil when none is loaded.
func (s *DemandService) Model() *model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// ModelLoaded reports whether a model is available for scoring.
func (s *DemandService) ModelLoaded() bool {
	return s.Model() != nil
}

// CacheAvailable reports whether the recommendation cache has a live
// Redis connection.
func (s *DemandService) CacheAvailable() bool {
	return s.cache.Available()
}

// RankZones returns the top-k zones for the given timestamp, ranked by
// predicted-demand probability descending then distance from refZone's
// centroid ascending. Without a loaded model it returns an empty list
// (degraded mode), never an error.
func (s *DemandService) RankZones(ctx context.Context, refZoneID int, at time.Time, k int) ([]domain.Recommendation, error) {
	m := s.Model()
	if m == nil {
		return []domain.Recommendation{}, nil
	}
	if k <= 0 {
		return []domain.Recommendation{}, nil
	}

	cacheKey := fmt.Sprintf("rideback:recs:%d:%d:%s", refZoneID, k, at.UTC().Format("2006010215"))
	var cached []domain.Recommendation
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		log.Printf("recommendation cache read failed: %v", err)
	} else if hit {
		metrics.RecommendationCacheHits.Inc()
		return cached, nil
	}

	start := time.Now()
	defer func() {
		metrics.RankingDuration.Observe(time.Since(start).Seconds())
	}()

	zones, err := s.repo.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("demand: load zones: %w", err)
	}
	if len(zones) == 0 {
		return []domain.Recommendation{}, nil
	}

	scores := m.PredictAll(at)
	probs := model.Softmax(scores)

	refLat, refLon, refOK := s.refCentroid(zones, refZoneID)

	recs := make([]domain.Recommendation, 0, len(zones))
	for _, z := range zones {
		rec := domain.Recommendation{
			ZoneID:         z.ID,
			Zone:           z.Name,
			Borough:        z.Borough,
			DistanceMeters: -1,
		}
		// Zones outside the training encoding keep demand 0 /
		// probability 0 and still rank by distance.
		if code, ok := m.Encoding.Code(z.ID); ok {
			rec.PredictedDemand = scores[code]
			rec.Probability = probs[code]
		}
		if refOK && z.HasCentroid() {
			lat, lon := normalizeCentroid(*z.CentroidLat, *z.CentroidLon)
			rec.DistanceMeters = utils.RoundTo(geo.HaversineMeters(refLat, refLon, lat, lon), 1)
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Probability != recs[j].Probability {
			return recs[i].Probability > recs[j].Probability
		}
		return lessDistance(recs[i].DistanceMeters, recs[j].DistanceMeters)
	})

	if len(recs) > k {
		recs = recs[:k]
	}

	if err := s.cache.Set(ctx, cacheKey, recs, cacheTTL); err != nil {
		log.Printf("recommendation cache write failed: %v", err)
	}
	metrics.RecommendationsServed.Inc()
	return recs, nil
}

// refCentroid finds the reference zone's centroid in WGS-84 degrees.
func (s *DemandService) refCentroid(zones []domain.Zone, refZoneID int) (lat, lon float64, ok bool) {
	for _, z := range zones {
		if z.ID == refZoneID && z.HasCentroid() {
			lat, lon = normalizeCentroid(*z.CentroidLat, *z.CentroidLon)
			return lat, lon, true
		}
	}
	return 0, 0, false
}

// normalizeCentroid reprojects state plane coordinates to degrees when
// the magnitudes rule out WGS-84.
func normalizeCentroid(lat, lon float64) (float64, float64) {
	if geo.LooksProjected(lat, lon) {
		// Shapefile-derived centroids: lon column carries the easting,
		// lat the northing.
		return geo.NYLongIslandToWGS84(lon, lat)
	}
	return lat, lon
}

// lessDistance orders distances ascending with unknown (-1) last.
func lessDistance(a, b float64) bool {
	if a < 0 {
		a = math.Inf(1)
	}
	if b < 0 {
		b = math.Inf(1)
	}
	return a < b
}
