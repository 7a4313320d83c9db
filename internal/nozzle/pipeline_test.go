package nozzle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityArtifacts build a pipeline whose scaled features pass through
// unchanged and whose reduced point is just the first two features, so cluster
// assignment can be reasoned about directly.
func identityArtifacts(centroids [][]float64) *ArtifactSet {
	return &ArtifactSet{
		Scaler:   &StandardScaler{Mean: []float64{0, 0, 0}, Scale: []float64{1, 1, 1}},
		Reducer:  &PCAReducer{Mean: []float64{0, 0, 0}, Components: [][]float64{{1, 0, 0}, {0, 1, 0}}},
		Assigner: &KMeansAssigner{Centroids: centroids},
	}
}

func TestPipelineClassify(t *testing.T) {
	t.Parallel()

	p := NewArtifactPipeline(identityArtifacts([][]float64{{0, 0}, {100, 100}}), PipelineConfig{})
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	rec, err := p.Classify(FeatureVector{CurrentPerEncoder: 2, CurrentVariance: 1, EncoderSlope: 0.5}, at)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 2.0, rec.PCA1)
	assert.Equal(t, 1.0, rec.PCA2)
	assert.Equal(t, 0, rec.ClusterID)
	assert.Equal(t, "Clogged", rec.Label)
	assert.Equal(t, at, rec.Timestamp)

	rec, err = p.Classify(FeatureVector{CurrentPerEncoder: 99, CurrentVariance: 101, EncoderSlope: 0}, at)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ClusterID)
	assert.Equal(t, "Unclogged", rec.Label)
}

func TestPipelineClassifyDeterministicCoordinates(t *testing.T) {
	t.Parallel()

	p := NewArtifactPipeline(identityArtifacts([][]float64{{0, 0}, {100, 100}}), PipelineConfig{})
	fv := FeatureVector{CurrentPerEncoder: 7, CurrentVariance: 3, EncoderSlope: 1}
	at := time.Now()

	first, err := p.Classify(fv, at)
	require.NoError(t, err)
	second, err := p.Classify(fv, at)
	require.NoError(t, err)

	// Coordinates and cluster are a pure function of the features; only the
	// record id differs between evaluations.
	assert.Equal(t, first.PCA1, second.PCA1)
	assert.Equal(t, first.PCA2, second.PCA2)
	assert.Equal(t, first.ClusterID, second.ClusterID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestPipelineClassifyUnknownCluster(t *testing.T) {
	t.Parallel()

	// Three centroids but only two configured labels.
	p := NewArtifactPipeline(
		identityArtifacts([][]float64{{0, 0}, {100, 100}, {-100, -100}}),
		PipelineConfig{},
	)

	_, err := p.Classify(FeatureVector{CurrentPerEncoder: -99, CurrentVariance: -99, EncoderSlope: 0}, time.Now())
	require.Error(t, err)

	var unknownErr *UnknownClusterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, 2, unknownErr.ClusterID)
}

func TestPipelineImputesNonFiniteFeatures(t *testing.T) {
	t.Parallel()

	set := identityArtifacts([][]float64{{0, 0}, {100, 100}})
	set.Scaler.Mean = []float64{5, 6, 7}

	// Default fallback is the scaler's stored means, so a NaN variance is
	// replaced by 6 before scaling. With unit scale the reduced point is
	// (feature - mean) per axis.
	p := NewArtifactPipeline(set, PipelineConfig{})
	rec, err := p.Classify(FeatureVector{CurrentPerEncoder: 5, CurrentVariance: math.NaN(), EncoderSlope: 7}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.PCA1)
	assert.Equal(t, 0.0, rec.PCA2)

	t.Run("explicit fallback", func(t *testing.T) {
		t.Parallel()
		p := NewArtifactPipeline(set, PipelineConfig{ImputeFallback: []float64{5, 106, 7}})
		rec, err := p.Classify(FeatureVector{CurrentPerEncoder: 105, CurrentVariance: math.Inf(1), EncoderSlope: 7}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 100.0, rec.PCA1)
		assert.Equal(t, 100.0, rec.PCA2)
		assert.Equal(t, "Unclogged", rec.Label)
	})
}

func TestPipelineCustomLabels(t *testing.T) {
	t.Parallel()

	labels := map[int]string{0: "Blocked", 1: "Clear"}
	p := NewArtifactPipeline(identityArtifacts([][]float64{{0, 0}, {100, 100}}), PipelineConfig{Labels: labels})

	// The pipeline copies the map; later caller mutations must not leak in.
	labels[0] = "mutated"

	rec, err := p.Classify(FeatureVector{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Blocked", rec.Label)
	assert.Equal(t, map[int]string{0: "Blocked", 1: "Clear"}, p.Labels())
}

func TestPipelineReducerDimensionCheck(t *testing.T) {
	t.Parallel()

	set := identityArtifacts([][]float64{{0}, {100}})
	set.Reducer.Components = [][]float64{{1, 0, 0}}

	p := NewArtifactPipeline(set, PipelineConfig{})
	_, err := p.Classify(FeatureVector{CurrentPerEncoder: 1}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2")
}

func TestDefaultStateLabels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, map[int]string{0: "Clogged", 1: "Unclogged"}, DefaultStateLabels())
}
