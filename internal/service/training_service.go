package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rideback/backend/internal/feature"
	"github.com/rideback/backend/internal/metrics"
	"github.com/rideback/backend/internal/model"
)

// ErrNoTrainingData is returned when the trip log is empty.
var ErrNoTrainingData = errors.New("training: trip log is empty")

// TrainingService runs the full training pipeline: load trips, build
// features, aggregate demand, fit the model, persist the artifact and
// hand the new model to the demand service.
type TrainingService struct {
	repo     DataRepository
	demand   *DemandService
	modelDir string
	cfg      model.Config
}

// NewTrainingService creates a new training service.
func NewTrainingService(repo DataRepository, demand *DemandService, modelDir string) *TrainingService {
	return &TrainingService{
		repo:     repo,
		demand:   demand,
		modelDir: modelDir,
		cfg:      model.DefaultConfig(),
	}
}

// LoadSavedModel loads a previously persisted artifact into the demand
// service.
func (s *TrainingService) LoadSavedModel() error {
	m, err := model.Load(s.modelDir)
	if err != nil {
		return err
	}
	s.demand.SetModel(m)
	log.Printf("loaded model artifact: %d zones, trained at %s",
		m.Encoding.Len(), m.TrainedAt.Format(time.RFC3339))
	return nil
}

// Train runs one training pass and swaps the resulting model in.
func (s *TrainingService) Train(ctx context.Context) (*model.Model, error) {
	start := time.Now()

	m, err := s.train(ctx)
	if err != nil {
		metrics.TrainingFailures.Inc()
		return nil, err
	}

	metrics.TrainingRuns.Inc()
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	log.Printf("training completed: %d samples, train RMSE %.3f, test RMSE %.3f, test R2 %.3f (%.2fs)",
		m.Metrics.Samples, m.Metrics.TrainRMSE, m.Metrics.TestRMSE, m.Metrics.TestR2,
		time.Since(start).Seconds())
	return m, nil
}

func (s *TrainingService) train(ctx context.Context) (*model.Model, error) {
	trips, err := s.repo.LoadTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("training: load trips: %w", err)
	}
	if len(trips) == 0 {
		return nil, ErrNoTrainingData
	}

	rows, enc := feature.BuildRows(trips)
	agg := feature.Aggregate(rows)

	m, err := model.Train(agg, enc, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("training: fit: %w", err)
	}

	if err := model.Save(m, s.modelDir); err != nil {
		// The in-memory model is still good; keep serving with it.
		log.Printf("failed to persist model artifact: %v", err)
	}

	s.demand.SetModel(m)
	return m, nil
}
