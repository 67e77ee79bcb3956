package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testArtifact() Artifact {
	return Artifact{
		FormatVersion: ArtifactFormatVersion,
		FeatureNames:  []string{"x", "y"},
		Classes:       []int{0, 1},
		Scaler: Scaler{
			Mean:  []float64{0, 0},
			Scale: []float64{1, 1},
		},
		Trees: []Tree{
			{Nodes: []TreeNode{
				{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
				{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
				{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
			}},
		},
	}
}

func writeArtifact(t *testing.T, a Artifact) string {
	t.Helper()
	payload, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadEnsemble(t *testing.T) {
	path := writeArtifact(t, testArtifact())
	ensemble, err := LoadEnsemble(path, []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info := ensemble.Info()
	if info.Path != path {
		t.Errorf("expected path %q, got %q", path, info.Path)
	}
	if info.TreeCount != 1 {
		t.Errorf("expected 1 tree, got %d", info.TreeCount)
	}
	if len(info.Classes) != 2 || info.Classes[0] != 0 || info.Classes[1] != 1 {
		t.Errorf("expected classes [0 1], got %v", info.Classes)
	}
	if info.LoadedAt.IsZero() {
		t.Error("expected LoadedAt to be set")
	}
}

func TestLoadEnsembleMissingFile(t *testing.T) {
	_, err := LoadEnsemble(filepath.Join(t.TempDir(), "absent.json"), nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrInvalidArtifact) {
		t.Errorf("missing file should not report as invalid artifact: %v", err)
	}
}

func TestLoadEnsembleCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{nodes: oops"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := LoadEnsemble(path, nil)
	if !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact, got %v", err)
	}
}

func TestLoadEnsembleRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{"unsupported version", func(a *Artifact) { a.FormatVersion = 99 }},
		{"no feature names", func(a *Artifact) { a.FeatureNames = nil }},
		{"no classes", func(a *Artifact) { a.Classes = nil }},
		{"unsorted classes", func(a *Artifact) { a.Classes = []int{1, 0} }},
		{"duplicate classes", func(a *Artifact) { a.Classes = []int{0, 0} }},
		{"short scaler", func(a *Artifact) { a.Scaler.Mean = []float64{0} }},
		{"zero scale", func(a *Artifact) { a.Scaler.Scale = []float64{1, 0} }},
		{"no trees", func(a *Artifact) { a.Trees = nil }},
		{"empty tree", func(a *Artifact) { a.Trees = []Tree{{}} }},
		{"dangling child", func(a *Artifact) { a.Trees[0].Nodes[0].LeftChild = 99 }},
		{"negative child", func(a *Artifact) { a.Trees[0].Nodes[0].RightChild = -1 }},
		{"feature index out of range", func(a *Artifact) { a.Trees[0].Nodes[0].FeatureIdx = 5 }},
		{"leaf votes unknown class", func(a *Artifact) { a.Trees[0].Nodes[1].ClassLabel = 7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := testArtifact()
			tt.mutate(&artifact)
			_, err := LoadEnsemble(writeArtifact(t, artifact), nil)
			if !errors.Is(err, ErrInvalidArtifact) {
				t.Fatalf("expected ErrInvalidArtifact, got %v", err)
			}
		})
	}
}

// An artifact trained against a different attribute order must be refused at
// load time, not produce shifted predictions at request time.
func TestLoadEnsembleFeatureOrderEnforced(t *testing.T) {
	artifact := testArtifact()
	artifact.FeatureNames = []string{"y", "x"}
	_, err := LoadEnsemble(writeArtifact(t, artifact), []string{"x", "y"})
	if !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact, got %v", err)
	}

	_, err = LoadEnsemble(writeArtifact(t, testArtifact()), []string{"x", "y", "z"})
	if !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact for count mismatch, got %v", err)
	}
}
