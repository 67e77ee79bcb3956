package inference

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"wineclass/ml"
	"wineclass/monitoring"
	"wineclass/wine"
)

var (
	// ErrNotReady means Predict ran before a predictor handle was installed.
	// The startup order in cmd/main makes that unreachable in the server;
	// the HTTP layer still maps it to 503 instead of crashing.
	ErrNotReady = errors.New("predictor not ready")

	// ErrPredict wraps faults raised by the predictor for a structurally
	// valid sample. The cause stays server-side.
	ErrPredict = errors.New("prediction failed")
)

type vectorKey [wine.FeatureCount]float64

// Service runs validated samples through the shared predictor handle. The
// handle is read-only after startup, so concurrent Predict calls need no
// locking; the result cache locks internally.
type Service struct {
	model   ml.Predictor
	cache   *lru.Cache[vectorKey, int]
	metrics *monitoring.Collector
}

// NewService builds the serving pipeline around an already-loaded predictor.
// cacheSize <= 0 disables the result cache. Caching vector to label is sound
// because prediction is deterministic for a fixed artifact.
func NewService(model ml.Predictor, cacheSize int, metrics *monitoring.Collector) (*Service, error) {
	if model == nil {
		return nil, errors.New("model is nil")
	}
	if metrics == nil {
		metrics = monitoring.NewCollector()
	}
	s := &Service{model: model, metrics: metrics}
	if cacheSize > 0 {
		cache, err := lru.New[vectorKey, int](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("build prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Predict classifies one sample: build the vector, submit it as a batch of
// one, demand exactly one label back.
func (s *Service) Predict(ctx context.Context, sample wine.Sample) (int, error) {
	if s == nil || s.model == nil {
		return 0, ErrNotReady
	}
	vector := wine.FeatureVector(sample)

	var key vectorKey
	copy(key[:], vector)
	if s.cache != nil {
		if label, ok := s.cache.Get(key); ok {
			s.metrics.RecordPrediction(label, true)
			return label, nil
		}
	}

	labels, err := s.model.PredictBatch([][]float64{vector})
	if err != nil {
		s.metrics.RecordInferenceFailure()
		return 0, fmt.Errorf("%w: %v", ErrPredict, err)
	}
	if len(labels) != 1 {
		s.metrics.RecordInferenceFailure()
		return 0, fmt.Errorf("%w: predictor returned %d labels for a single-sample batch", ErrPredict, len(labels))
	}

	label := labels[0]
	if s.cache != nil {
		s.cache.Add(key, label)
	}
	s.metrics.RecordPrediction(label, false)
	return label, nil
}
