package nozzle

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateWindow indicates a window with no encoder movement (or a
// non-finite encoder delta). Rate-based features are undefined for such a
// window, so the evaluation cycle is skipped rather than classifying a
// stalled encoder.
var ErrDegenerateWindow = errors.New("degenerate window: no encoder movement")

// FeatureVector summarizes one full window of samples. The field order is
// fixed: the pre-fitted artifacts expect features as
// [current/encoder, current variance, encoder slope] and are sensitive to
// reordering.
type FeatureVector struct {
	// CurrentPerEncoder is mean current divided by absolute encoder travel,
	// scaled by 1000 to match the trained model's feature units.
	CurrentPerEncoder float64

	// CurrentVariance is the unbiased sample variance of current across the
	// window. The training pipeline computed variance with ddof=1, so the
	// same estimator is used here.
	CurrentVariance float64

	// EncoderSlope is the degree-1 least-squares slope of encoder count
	// against sample index, in counts per sample.
	EncoderSlope float64
}

// Values returns the features in the fixed order the artifacts expect.
func (fv FeatureVector) Values() []float64 {
	return []float64{fv.CurrentPerEncoder, fv.CurrentVariance, fv.EncoderSlope}
}

// ExtractFeatures derives a feature vector from a full window of samples,
// oldest first. The window is recomputed from scratch each evaluation; there
// is no incremental state. Returns ErrDegenerateWindow when the encoder did
// not move across the window.
func ExtractFeatures(window []Sample) (*FeatureVector, error) {
	if len(window) < 2 {
		return nil, ErrDegenerateWindow
	}

	currents := make([]float64, len(window))
	encoders := make([]float64, len(window))
	indices := make([]float64, len(window))
	for i, s := range window {
		currents[i] = s.Current
		encoders[i] = s.EncoderCount
		indices[i] = float64(i)
	}

	encoderDiff := math.Abs(window[len(window)-1].EncoderCount - window[0].EncoderCount)
	if encoderDiff == 0 || math.IsNaN(encoderDiff) || math.IsInf(encoderDiff, 0) {
		return nil, ErrDegenerateWindow
	}

	currentMean := stat.Mean(currents, nil)
	currentVariance := stat.Variance(currents, nil)
	_, encoderSlope := stat.LinearRegression(indices, encoders, nil, false)

	return &FeatureVector{
		CurrentPerEncoder: (currentMean / encoderDiff) * 1000,
		CurrentVariance:   currentVariance,
		EncoderSlope:      encoderSlope,
	}, nil
}
