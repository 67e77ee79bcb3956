package ml

// Predictor is the read-only classifier handle the serving path depends on.
// The batch shape is deliberate: callers submit a batch of one and must get
// exactly one label back.
type Predictor interface {
	PredictBatch(vectors [][]float64) ([]int, error)
}
