package nozzle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func writeArtifactDir(t *testing.T, scaler *StandardScaler, reducer *PCAReducer, assigner *KMeansAssigner) string {
	t.Helper()
	dir := t.TempDir()
	writeArtifact(t, dir, ScalerFile, scaler)
	writeArtifact(t, dir, ReducerFile, reducer)
	writeArtifact(t, dir, AssignerFile, assigner)
	return dir
}

func TestStandardScalerTransform(t *testing.T) {
	t.Parallel()

	s := &StandardScaler{Mean: []float64{10, 0, 5}, Scale: []float64{2, 1, 5}}

	out, err := s.Transform([]float64{14, 3, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, -1}, out)

	_, err = s.Transform([]float64{1, 2})
	assert.Error(t, err)
}

func TestPCAReducerTransform(t *testing.T) {
	t.Parallel()

	// Axis-aligned components make the projection easy to check by hand.
	p := &PCAReducer{
		Mean: []float64{1, 1, 1},
		Components: [][]float64{
			{1, 0, 0},
			{0, 0, 1},
		},
	}

	out, err := p.Transform([]float64{3, 7, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, out)

	_, err = p.Transform([]float64{1, 2})
	assert.Error(t, err)
}

func TestKMeansAssignerPredict(t *testing.T) {
	t.Parallel()

	k := &KMeansAssigner{Centroids: [][]float64{{0, 0}, {10, 10}}}

	tests := []struct {
		name  string
		point []float64
		want  int
	}{
		{name: "near origin", point: []float64{1, -1}, want: 0},
		{name: "near far centroid", point: []float64{9, 11}, want: 1},
		{name: "equidistant prefers first", point: []float64{5, 5}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := k.Predict(tt.point)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := k.Predict([]float64{1, 2, 3})
		assert.Error(t, err)
	})
}

func TestLoadArtifacts(t *testing.T) {
	t.Parallel()

	dir := writeArtifactDir(t,
		&StandardScaler{Mean: []float64{0, 0, 0}, Scale: []float64{1, 1, 1}},
		&PCAReducer{Mean: []float64{0, 0, 0}, Components: [][]float64{{1, 0, 0}, {0, 1, 0}}},
		&KMeansAssigner{Centroids: [][]float64{{0, 0}, {5, 5}}},
	)

	set, err := LoadArtifacts(dir)
	require.NoError(t, err)
	assert.Len(t, set.Scaler.Mean, 3)
	assert.Len(t, set.Reducer.Components, 2)
	assert.Len(t, set.Assigner.Centroids, 2)
}

func TestLoadArtifactsErrors(t *testing.T) {
	t.Parallel()

	validScaler := &StandardScaler{Mean: []float64{0, 0, 0}, Scale: []float64{1, 1, 1}}
	validReducer := &PCAReducer{Mean: []float64{0, 0, 0}, Components: [][]float64{{1, 0, 0}, {0, 1, 0}}}
	validAssigner := &KMeansAssigner{Centroids: [][]float64{{0, 0}, {5, 5}}}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeArtifact(t, dir, ScalerFile, validScaler)
		writeArtifact(t, dir, ReducerFile, validReducer)
		_, err := LoadArtifacts(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load assigner")
	})

	t.Run("corrupt json", func(t *testing.T) {
		t.Parallel()
		dir := writeArtifactDir(t, validScaler, validReducer, validAssigner)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ScalerFile), []byte("{not json"), 0644))
		_, err := LoadArtifacts(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load scaler")
	})

	t.Run("zero scale", func(t *testing.T) {
		t.Parallel()
		dir := writeArtifactDir(t,
			&StandardScaler{Mean: []float64{0, 0, 0}, Scale: []float64{1, 0, 1}},
			validReducer, validAssigner)
		_, err := LoadArtifacts(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid scaler")
	})

	t.Run("chain dimension mismatch", func(t *testing.T) {
		t.Parallel()
		dir := writeArtifactDir(t, validScaler,
			&PCAReducer{Mean: []float64{0, 0}, Components: [][]float64{{1, 0}, {0, 1}}},
			validAssigner)
		_, err := LoadArtifacts(dir)
		assert.Error(t, err)
	})

	t.Run("assigner dimension mismatch", func(t *testing.T) {
		t.Parallel()
		dir := writeArtifactDir(t, validScaler, validReducer,
			&KMeansAssigner{Centroids: [][]float64{{0, 0, 0}, {5, 5, 5}}})
		_, err := LoadArtifacts(dir)
		assert.Error(t, err)
	})
}
