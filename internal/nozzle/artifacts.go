package nozzle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
)

// The trained preprocessing and clustering artifacts are consumed as opaque
// capabilities: each exposes a single fit-free transform or predict
// operation. Concrete implementations below are plain parameter blobs
// exported from the training pipeline as JSON; training them is out of scope.

// Scaler applies a pre-fitted, dimension-preserving transform to a feature
// vector.
type Scaler interface {
	Transform(features []float64) ([]float64, error)
}

// Reducer projects a feature vector into a lower-dimensional space.
type Reducer interface {
	Transform(features []float64) ([]float64, error)
}

// Assigner maps a reduced point to a discrete cluster id.
type Assigner interface {
	Predict(point []float64) (int, error)
}

// Default artifact file names inside the artifact directory.
const (
	ScalerFile   = "scaler.json"
	ReducerFile  = "pca.json"
	AssignerFile = "kmeans.json"
)

// StandardScaler standardizes features using the training set's per-feature
// mean and scale.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns (x - mean) / scale per feature.
func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(features))
	}
	out := make([]float64, len(features))
	for i, v := range features {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler mean/scale length mismatch: %d vs %d", len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scaler scale[%d] is zero", i)
		}
	}
	return nil
}

// PCAReducer projects centered features onto the principal components found
// during training. Each row of Components is one principal axis.
type PCAReducer struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
}

// Transform centers the input and projects it onto each component.
func (p *PCAReducer) Transform(features []float64) ([]float64, error) {
	if len(features) != len(p.Mean) {
		return nil, fmt.Errorf("reducer expects %d features, got %d", len(p.Mean), len(features))
	}
	centered := make([]float64, len(features))
	floats.SubTo(centered, features, p.Mean)

	out := make([]float64, len(p.Components))
	for i, axis := range p.Components {
		out[i] = floats.Dot(axis, centered)
	}
	return out, nil
}

func (p *PCAReducer) validate() error {
	if len(p.Components) == 0 {
		return fmt.Errorf("reducer has no components")
	}
	for i, axis := range p.Components {
		if len(axis) != len(p.Mean) {
			return fmt.Errorf("reducer component %d has %d entries, expected %d", i, len(axis), len(p.Mean))
		}
	}
	return nil
}

// KMeansAssigner assigns a point to its nearest pre-fitted centroid.
type KMeansAssigner struct {
	Centroids [][]float64 `json:"centroids"`
}

// Predict returns the index of the centroid nearest to point.
func (k *KMeansAssigner) Predict(point []float64) (int, error) {
	if len(k.Centroids) == 0 {
		return 0, fmt.Errorf("assigner has no centroids")
	}
	best := 0
	bestDist := 0.0
	for i, c := range k.Centroids {
		if len(c) != len(point) {
			return 0, fmt.Errorf("centroid %d has %d dimensions, point has %d", i, len(c), len(point))
		}
		d := floats.Distance(point, c, 2)
		if i == 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, nil
}

func (k *KMeansAssigner) validate() error {
	if len(k.Centroids) == 0 {
		return fmt.Errorf("assigner has no centroids")
	}
	dim := len(k.Centroids[0])
	for i, c := range k.Centroids {
		if len(c) != dim {
			return fmt.Errorf("centroid %d has %d dimensions, expected %d", i, len(c), dim)
		}
	}
	return nil
}

// ArtifactSet bundles the three pre-fitted artifacts the pipeline consumes.
type ArtifactSet struct {
	Scaler   *StandardScaler
	Reducer  *PCAReducer
	Assigner *KMeansAssigner
}

// LoadArtifacts loads and validates the artifact trio from dir. Any missing,
// corrupt, or dimensionally inconsistent artifact is an error: the pipeline
// cannot run without them, so callers treat failures here as fatal at
// startup.
func LoadArtifacts(dir string) (*ArtifactSet, error) {
	set := &ArtifactSet{
		Scaler:   &StandardScaler{},
		Reducer:  &PCAReducer{},
		Assigner: &KMeansAssigner{},
	}

	if err := loadArtifact(filepath.Join(dir, ScalerFile), set.Scaler); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	if err := loadArtifact(filepath.Join(dir, ReducerFile), set.Reducer); err != nil {
		return nil, fmt.Errorf("load reducer: %w", err)
	}
	if err := loadArtifact(filepath.Join(dir, AssignerFile), set.Assigner); err != nil {
		return nil, fmt.Errorf("load assigner: %w", err)
	}

	if err := set.Scaler.validate(); err != nil {
		return nil, fmt.Errorf("invalid scaler: %w", err)
	}
	if err := set.Reducer.validate(); err != nil {
		return nil, fmt.Errorf("invalid reducer: %w", err)
	}
	if err := set.Assigner.validate(); err != nil {
		return nil, fmt.Errorf("invalid assigner: %w", err)
	}

	// Cross-check dimensions across the chain: scaler output feeds the
	// reducer, reducer output feeds the assigner.
	if len(set.Reducer.Mean) != len(set.Scaler.Mean) {
		return nil, fmt.Errorf("reducer expects %d features, scaler produces %d",
			len(set.Reducer.Mean), len(set.Scaler.Mean))
	}
	if dim := len(set.Assigner.Centroids[0]); dim != len(set.Reducer.Components) {
		return nil, fmt.Errorf("assigner expects %d dimensions, reducer produces %d",
			dim, len(set.Reducer.Components))
	}

	return set, nil
}

func loadArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
