// Package model fits and serves the per-zone demand regression. The
// artifact bundles the weight vector with the zone encoding it was
// trained against; predictions through a Model therefore can never mix
// weights with a foreign encoding.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/rideback/backend/internal/feature"
)

// Feature vector layout: bias, zone one-hot, hour one-hot (24),
// weekday one-hot (7), month one-hot (12), weekend flag, peak flag.
const (
	hourDims    = 24
	weekdayDims = 7
	monthDims   = 12
	extraDims   = 1 + 2 // bias + weekend + peak
)

// FeatureNames mirrors the engineered feature set, recorded in the
// artifact for inspection.
var FeatureNames = []string{
	"pickup_zone_encoded", "hour", "day_of_week", "month", "is_weekend", "is_peak_hour",
}

// Metrics summarizes a training run.
type Metrics struct {
	Samples   int     `json:"samples"`
	TrainRMSE float64 `json:"train_rmse"`
	TestRMSE  float64 `json:"test_rmse"`
	TestR2    float64 `json:"test_r2"`
}

// Model is a trained demand regressor plus the zone encoding it was
// fitted with.
type Model struct {
	Weights   []float64             `json:"weights"`
	Encoding  *feature.ZoneEncoding `json:"encoding"`
	Features  []string              `json:"features"`
	TrainedAt time.Time             `json:"trained_at"`
	Metrics   Metrics               `json:"metrics"`
}

func dims(numZones int) int {
	return extraDims + numZones + hourDims + weekdayDims + monthDims
}

// vectorize writes the one-hot expansion of a feature row into dst.
func vectorize(dst []float64, numZones, zoneCode, hour, dow, month, weekend, peak int) {
	for i := range dst {
		dst[i] = 0
	}
	dst[0] = 1 // bias
	off := 1
	dst[off+zoneCode] = 1
	off += numZones
	dst[off+hour] = 1
	off += hourDims
	dst[off+dow] = 1
	off += weekdayDims
	dst[off+month-1] = 1
	off += monthDims
	dst[off] = float64(weekend)
	dst[off+1] = float64(peak)
}

// Predict scores one engineered feature combination.
func (m *Model) Predict(zoneCode, hour, dow, month, weekend, peak int) float64 {
	numZones := m.Encoding.Len()
	x := make([]float64, dims(numZones))
	vectorize(x, numZones, zoneCode, hour, dow, month, weekend, peak)
	return mat.Dot(mat.NewVecDense(len(x), x), mat.NewVecDense(len(m.Weights), m.Weights))
}

// PredictAll scores every known zone for a timestamp. The slice is
// indexed by zone code.
func (m *Model) PredictAll(at time.Time) []float64 {
	hour, dow, month, weekend, peak := feature.TimeFeatures(at)
	numZones := m.Encoding.Len()
	scores := make([]float64, numZones)
	x := make([]float64, dims(numZones))
	w := mat.NewVecDense(len(m.Weights), m.Weights)
	for code := 0; code < numZones; code++ {
		vectorize(x, numZones, code, hour, dow, month, weekend, peak)
		scores[code] = mat.Dot(mat.NewVecDense(len(x), x), w)
	}
	return scores
}

// Config holds the training hyperparameters.
type Config struct {
	Ridge        float64 // L2 penalty, keeps the normal equations well conditioned
	TestFraction float64
	Seed         int64
}

// DefaultConfig mirrors the historical training setup: 10% holdout,
// fixed seed for reproducible splits.
func DefaultConfig() Config {
	return Config{Ridge: 1e-3, TestFraction: 0.1, Seed: 42}
}

// Train fits a ridge regression mapping engineered features to booking
// counts. rows must carry zone codes from enc.
func Train(rows []feature.DemandRow, enc *feature.ZoneEncoding, cfg Config) (*Model, error) {
	if len(rows) == 0 {
		return nil, errors.New("model: no training rows")
	}
	if enc.Len() == 0 {
		return nil, errors.New("model: empty zone encoding")
	}
	if cfg.Ridge <= 0 {
		cfg.Ridge = 1e-3
	}

	numZones := enc.Len()
	d := dims(numZones)

	trainIdx, testIdx := split(len(rows), cfg.TestFraction, cfg.Seed)

	x := mat.NewDense(len(trainIdx), d, nil)
	y := mat.NewVecDense(len(trainIdx), nil)
	buf := make([]float64, d)
	for i, idx := range trainIdx {
		r := rows[idx]
		vectorize(buf, numZones, r.ZoneCode, r.Hour, r.DayOfWeek, r.Month, r.IsWeekend, r.IsPeakHour)
		x.SetRow(i, buf)
		y.SetVec(i, float64(r.Bookings))
	}

	// Normal equations with ridge: (XᵀX + λI) w = Xᵀy.
	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for i := 0; i < d; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+cfg.Ridge)
	}
	xty := mat.NewVecDense(d, nil)
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errors.New("model: normal equations not positive definite")
	}
	w := mat.NewVecDense(d, nil)
	if err := chol.SolveVecTo(w, xty); err != nil {
		return nil, fmt.Errorf("model: solve failed: %w", err)
	}

	m := &Model{
		Weights:   append([]float64(nil), w.RawVector().Data...),
		Encoding:  enc,
		Features:  FeatureNames,
		TrainedAt: time.Now().UTC(),
	}
	m.Metrics = evaluate(m, rows, trainIdx, testIdx)
	return m, nil
}

func evaluate(m *Model, rows []feature.DemandRow, trainIdx, testIdx []int) Metrics {
	predict := func(idx []int) (preds, vals []float64) {
		preds = make([]float64, len(idx))
		vals = make([]float64, len(idx))
		for i, j := range idx {
			r := rows[j]
			preds[i] = m.Predict(r.ZoneCode, r.Hour, r.DayOfWeek, r.Month, r.IsWeekend, r.IsPeakHour)
			vals[i] = float64(r.Bookings)
		}
		return preds, vals
	}

	met := Metrics{Samples: len(rows)}
	trainPred, trainVals := predict(trainIdx)
	met.TrainRMSE = rmse(trainPred, trainVals)
	if len(testIdx) > 0 {
		testPred, testVals := predict(testIdx)
		met.TestRMSE = rmse(testPred, testVals)
		met.TestR2 = rSquared(testPred, testVals)
	}
	return met
}

func rmse(preds, vals []float64) float64 {
	if len(preds) == 0 {
		return 0
	}
	var sum float64
	for i := range preds {
		d := preds[i] - vals[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(preds)))
}

func rSquared(preds, vals []float64) float64 {
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var ssRes, ssTot float64
	for i := range vals {
		d := vals[i] - preds[i]
		ssRes += d * d
		t := vals[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
