package ml

import (
	"errors"
	"fmt"
	"time"
)

// Ensemble is a loaded artifact ready for prediction. It is never mutated
// after LoadEnsemble returns, so any number of requests may call it
// concurrently without locking.
type Ensemble struct {
	artifact Artifact
	path     string
	loadedAt time.Time
}

type ModelInfo struct {
	Path          string    `json:"path"`
	FormatVersion int       `json:"format_version"`
	CreatedAt     string    `json:"created_at,omitempty"`
	FeatureNames  []string  `json:"feature_names"`
	Classes       []int     `json:"classes"`
	TreeCount     int       `json:"tree_count"`
	LoadedAt      time.Time `json:"loaded_at"`
}

func (e *Ensemble) Info() ModelInfo {
	return ModelInfo{
		Path:          e.path,
		FormatVersion: e.artifact.FormatVersion,
		CreatedAt:     e.artifact.CreatedAt,
		FeatureNames:  append([]string(nil), e.artifact.FeatureNames...),
		Classes:       append([]int(nil), e.artifact.Classes...),
		TreeCount:     len(e.artifact.Trees),
		LoadedAt:      e.loadedAt,
	}
}

// Predict classifies a single raw vector: standardize, walk every tree,
// majority vote. Returns the winning label and the vote share behind it.
// Ties go to the lowest class label.
func (e *Ensemble) Predict(vector []float64) (int, float64, error) {
	scaled, err := e.artifact.Scaler.Apply(vector)
	if err != nil {
		return 0, 0, err
	}

	counts := make(map[int]int, len(e.artifact.Classes))
	for i, tree := range e.artifact.Trees {
		label, err := tree.predict(scaled)
		if err != nil {
			return 0, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		counts[label]++
	}

	bestLabel, bestCount := 0, -1
	for _, class := range e.artifact.Classes {
		if counts[class] > bestCount {
			bestLabel = class
			bestCount = counts[class]
		}
	}
	return bestLabel, float64(bestCount) / float64(len(e.artifact.Trees)), nil
}

// PredictBatch classifies one vector per row and returns exactly one label
// per row, in order.
func (e *Ensemble) PredictBatch(vectors [][]float64) ([]int, error) {
	labels := make([]int, len(vectors))
	for i, vector := range vectors {
		label, _, err := e.Predict(vector)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		labels[i] = label
	}
	return labels, nil
}

func (s Scaler) Apply(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) || len(values) != len(s.Scale) {
		return nil, fmt.Errorf("vector length %d, want %d", len(values), len(s.Mean))
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = (values[i] - s.Mean[i]) / s.Scale[i]
	}
	return result, nil
}

func (t Tree) predict(features []float64) (int, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree walk did not reach a leaf")
}
