// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RidesCompleted counts rides submitted through /complete_ride.
	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_rides_completed_total",
		Help: "Total number of completed rides submitted.",
	})

	// MatchLookups counts return-match queries.
	MatchLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_match_lookups_total",
		Help: "Total number of return-trip match lookups.",
	})

	// MatchesFound counts successful return-trip matches.
	MatchesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_matches_found_total",
		Help: "Total number of return-trip matches found.",
	})

	// RecommendationsServed counts ranked zone recommendation responses.
	RecommendationsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_recommendations_served_total",
		Help: "Total number of zone recommendation sets served.",
	})

	// RecommendationCacheHits counts ranked results served from cache.
	RecommendationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_recommendation_cache_hits_total",
		Help: "Total number of recommendation cache hits.",
	})

	// TrainingRuns counts completed model training runs.
	TrainingRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_training_runs_total",
		Help: "Total number of completed training runs.",
	})

	// TrainingFailures counts failed model training runs.
	TrainingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rideback_training_failures_total",
		Help: "Total number of failed training runs.",
	})

	// TrainingDuration observes how long a training run takes.
	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rideback_training_duration_seconds",
		Help:    "Duration of a full training run.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	})

	// RankingDuration observes how long scoring and ranking all zones
	// takes.
	RankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rideback_ranking_duration_seconds",
		Help:    "Duration of a full zone ranking computation.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})
)
