package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nozzle.report/internal/nozzle"
)

func TestSessionPlots(t *testing.T) {
	t.Parallel()

	window := make([]nozzle.Sample, 50)
	for i := range window {
		window[i] = nozzle.Sample{EncoderCount: float64(i * 3), Current: 0.4}
	}
	history := []nozzle.Classification{
		{ID: "a", PCA1: 1.2, PCA2: -0.3, Label: "Clogged", Timestamp: time.Now()},
		{ID: "b", PCA1: -0.8, PCA2: 0.5, Label: "Unclogged", Timestamp: time.Now()},
	}

	dir := filepath.Join(t.TempDir(), "plots")
	require.NoError(t, SessionPlots(dir, window, history))

	for _, name := range []string{"sensor.png", "clusters.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "%s should exist", name)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestSessionPlotsEmptyInputs(t *testing.T) {
	t.Parallel()

	// Plots of an empty session still render (axes only)
	dir := filepath.Join(t.TempDir(), "plots")
	require.NoError(t, SessionPlots(dir, nil, nil))

	_, err := os.Stat(filepath.Join(dir, "sensor.png"))
	assert.NoError(t, err)
}
