package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ArtifactFormatVersion is the only artifact layout this build understands.
const ArtifactFormatVersion = 1

// ErrInvalidArtifact marks an artifact file that was readable but corrupt or
// incompatible with this build. Callers treat it the same as a missing file:
// fatal at startup, no retry.
var ErrInvalidArtifact = errors.New("invalid model artifact")

// Artifact is the serialized classifier: a standard scaler plus a voting
// ensemble of decision trees, trained offline and shipped as one JSON file.
type Artifact struct {
	FormatVersion int      `json:"format_version"`
	CreatedAt     string   `json:"created_at,omitempty"`
	FeatureNames  []string `json:"feature_names"`
	Classes       []int    `json:"classes"`
	Scaler        Scaler   `json:"scaler"`
	Trees         []Tree   `json:"trees"`
}

type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is one node of a flattened decision tree. Children link by index
// into the tree's node slice, -1 for none.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// LoadEnsemble reads and validates an artifact file and returns the predictor
// handle built from it. featureNames is the attribute order the caller will
// feed vectors in; an artifact trained against a different order is rejected
// here instead of predicting garbage later.
func LoadEnsemble(path string, featureNames []string) (*Ensemble, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := artifact.validate(featureNames); err != nil {
		return nil, err
	}
	return &Ensemble{
		artifact: artifact,
		path:     path,
		loadedAt: time.Now(),
	}, nil
}

func (a *Artifact) validate(featureNames []string) error {
	if a.FormatVersion != ArtifactFormatVersion {
		return fmt.Errorf("%w: format version %d, want %d", ErrInvalidArtifact, a.FormatVersion, ArtifactFormatVersion)
	}
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("%w: no feature names", ErrInvalidArtifact)
	}
	if featureNames != nil {
		if len(featureNames) != len(a.FeatureNames) {
			return fmt.Errorf("%w: %d features, want %d", ErrInvalidArtifact, len(a.FeatureNames), len(featureNames))
		}
		for i, name := range featureNames {
			if a.FeatureNames[i] != name {
				return fmt.Errorf("%w: feature %d is %q, want %q", ErrInvalidArtifact, i, a.FeatureNames[i], name)
			}
		}
	}
	if len(a.Classes) == 0 {
		return fmt.Errorf("%w: no classes", ErrInvalidArtifact)
	}
	for i := 1; i < len(a.Classes); i++ {
		if a.Classes[i] <= a.Classes[i-1] {
			return fmt.Errorf("%w: classes must be strictly increasing", ErrInvalidArtifact)
		}
	}
	featureCount := len(a.FeatureNames)
	if len(a.Scaler.Mean) != featureCount || len(a.Scaler.Scale) != featureCount {
		return fmt.Errorf("%w: scaler sized %d/%d, want %d", ErrInvalidArtifact, len(a.Scaler.Mean), len(a.Scaler.Scale), featureCount)
	}
	for i, s := range a.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("%w: zero scale for feature %d", ErrInvalidArtifact, i)
		}
	}
	if len(a.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidArtifact)
	}
	for ti, tree := range a.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d has no nodes", ErrInvalidArtifact, ti)
		}
		for ni, node := range tree.Nodes {
			if node.IsLeaf {
				if !containsClass(a.Classes, node.ClassLabel) {
					return fmt.Errorf("%w: tree %d node %d votes unknown class %d", ErrInvalidArtifact, ti, ni, node.ClassLabel)
				}
				continue
			}
			if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
				return fmt.Errorf("%w: tree %d node %d feature index %d out of range", ErrInvalidArtifact, ti, ni, node.FeatureIdx)
			}
			if node.LeftChild < 0 || node.LeftChild >= len(tree.Nodes) ||
				node.RightChild < 0 || node.RightChild >= len(tree.Nodes) {
				return fmt.Errorf("%w: tree %d node %d has dangling children", ErrInvalidArtifact, ti, ni)
			}
		}
	}
	return nil
}

func containsClass(classes []int, label int) bool {
	for _, c := range classes {
		if c == label {
			return true
		}
	}
	return false
}
