package nozzle

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultStateLabels maps cluster ids to operator-facing condition names.
func DefaultStateLabels() map[int]string {
	return map[int]string{0: "Clogged", 1: "Unclogged"}
}

// Classification is one classified window: the reduced 2D coordinates, the
// cluster id, its human-readable label, and the wall-clock timestamp of the
// evaluation. Records are immutable after creation.
type Classification struct {
	ID        string    `json:"id"`
	PCA1      float64   `json:"pca1"`
	PCA2      float64   `json:"pca2"`
	ClusterID int       `json:"cluster_id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// UnknownClusterError reports a cluster id outside the configured label
// mapping. This is a configuration/version mismatch between the artifacts
// and the label map, surfaced distinctly rather than defaulting to a label.
type UnknownClusterError struct {
	ClusterID int
}

func (e *UnknownClusterError) Error() string {
	return fmt.Sprintf("cluster id %d has no configured state label", e.ClusterID)
}

// PipelineConfig customizes an InferencePipeline.
type PipelineConfig struct {
	// Labels maps cluster ids to state names. Nil uses DefaultStateLabels.
	Labels map[int]string

	// ImputeFallback replaces non-finite feature values before scaling,
	// indexed by feature position. Nil uses the scaler's stored means, the
	// values a mean imputer fitted on the training set would produce.
	ImputeFallback []float64
}

// InferencePipeline chains imputation, scaling, dimensionality reduction, and
// cluster assignment into a single classification step. The stages are
// supplied externally as pre-fitted artifacts; the pipeline itself holds no
// mutable state and is safe for concurrent use.
type InferencePipeline struct {
	scaler   Scaler
	reducer  Reducer
	assigner Assigner
	labels   map[int]string
	fallback []float64
}

// NewInferencePipeline assembles a pipeline from the artifact trio.
func NewInferencePipeline(scaler Scaler, reducer Reducer, assigner Assigner, cfg PipelineConfig) *InferencePipeline {
	labels := cfg.Labels
	if labels == nil {
		labels = DefaultStateLabels()
	}
	copied := make(map[int]string, len(labels))
	for id, name := range labels {
		copied[id] = name
	}

	fallback := cfg.ImputeFallback
	if fallback == nil {
		if ss, ok := scaler.(*StandardScaler); ok {
			fallback = ss.Mean
		}
	}

	return &InferencePipeline{
		scaler:   scaler,
		reducer:  reducer,
		assigner: assigner,
		labels:   copied,
		fallback: fallback,
	}
}

// NewArtifactPipeline assembles a pipeline from a loaded ArtifactSet.
func NewArtifactPipeline(set *ArtifactSet, cfg PipelineConfig) *InferencePipeline {
	return NewInferencePipeline(set.Scaler, set.Reducer, set.Assigner, cfg)
}

// Labels returns a copy of the cluster id to state label mapping.
func (p *InferencePipeline) Labels() map[int]string {
	out := make(map[int]string, len(p.labels))
	for id, name := range p.labels {
		out[id] = name
	}
	return out
}

// Classify runs the feature vector through all four stages and returns the
// resulting record, stamped at the given time. Stage failures abort only
// this evaluation; the caller reports the error and continues with the next
// window.
func (p *InferencePipeline) Classify(fv FeatureVector, at time.Time) (Classification, error) {
	features := p.impute(fv.Values())

	scaled, err := p.scaler.Transform(features)
	if err != nil {
		return Classification{}, fmt.Errorf("scale features: %w", err)
	}

	reduced, err := p.reducer.Transform(scaled)
	if err != nil {
		return Classification{}, fmt.Errorf("reduce features: %w", err)
	}
	if len(reduced) != 2 {
		return Classification{}, fmt.Errorf("reducer produced %d dimensions, expected 2", len(reduced))
	}

	cluster, err := p.assigner.Predict(reduced)
	if err != nil {
		return Classification{}, fmt.Errorf("assign cluster: %w", err)
	}

	label, ok := p.labels[cluster]
	if !ok {
		return Classification{}, &UnknownClusterError{ClusterID: cluster}
	}

	return Classification{
		ID:        uuid.New().String(),
		PCA1:      reduced[0],
		PCA2:      reduced[1],
		ClusterID: cluster,
		Label:     label,
		Timestamp: at,
	}, nil
}

// impute replaces non-finite entries with the configured fallback. A window
// of finite samples always yields finite features, so this is a no-op on the
// happy path.
func (p *InferencePipeline) impute(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if i < len(p.fallback) {
				out[i] = p.fallback[i]
			}
			continue
		}
		out[i] = v
	}
	return out
}
