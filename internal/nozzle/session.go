package nozzle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/nozzle.report/internal/monitoring"
	"github.com/banshee-data/nozzle.report/internal/timeutil"
)

// Session owns the mutable state for one monitoring connection: the sliding
// window buffer, the classification history, and the per-session counters.
// It is created on connect and discarded on disconnect; there is no ambient
// global state. Process serializes all buffer mutations, so a single Session
// is safe to share between the evaluation loop and concurrent readers.
type Session struct {
	pipeline *InferencePipeline
	clock    timeutil.Clock

	mu         sync.Mutex
	buffer     *SlidingWindowBuffer
	lastSample Sample
	haveSample bool
	stats      SessionStats

	history *ClassificationHistory
}

// SessionStats counts per-record outcomes for reporting.
type SessionStats struct {
	SamplesAccepted int `json:"samples_accepted"`
	LinesRejected   int `json:"lines_rejected"`
	WindowsSkipped  int `json:"windows_skipped"`
	InferenceErrors int `json:"inference_errors"`
	Classifications int `json:"classifications"`
}

// SessionConfig customizes a Session.
type SessionConfig struct {
	// WindowSize overrides DefaultWindowSize when positive.
	WindowSize int

	// Clock supplies record timestamps. Nil uses the real clock.
	Clock timeutil.Clock
}

// NewSession creates a session around the given inference pipeline.
func NewSession(pipeline *InferencePipeline, cfg SessionConfig) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Session{
		pipeline: pipeline,
		clock:    clock,
		buffer:   NewSlidingWindowBuffer(cfg.WindowSize),
		history:  NewClassificationHistory(),
	}
}

// ProcessResult reports what one call to Process did. Sample is set whenever
// the line parsed, even if the evaluation cycle later failed; Record is set
// only when a full window was classified.
type ProcessResult struct {
	Sample *Sample
	Record *Classification
}

// Process runs the full per-record flow for one raw line: parse, push into
// the window, and - once the window is exactly full - extract features,
// classify, and append to the history. Every error is contained to this
// record: the stream continues with the next line and the buffer is never
// corrupted by a failed evaluation.
func (s *Session) Process(line string) (ProcessResult, error) {
	sample, err := ParseSampleLine(line)
	if err != nil {
		s.mu.Lock()
		s.stats.LinesRejected++
		s.mu.Unlock()
		return ProcessResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Push(sample)
	s.lastSample = sample
	s.haveSample = true
	s.stats.SamplesAccepted++

	result := ProcessResult{Sample: &sample}
	if !s.buffer.IsFull() {
		return result, nil
	}

	fv, err := ExtractFeatures(s.buffer.Snapshot())
	if err != nil {
		if errors.Is(err, ErrDegenerateWindow) {
			s.stats.WindowsSkipped++
			monitoring.Logf("skipping evaluation: %v", err)
			return result, err
		}
		s.stats.InferenceErrors++
		return result, fmt.Errorf("extract features: %w", err)
	}

	rec, err := s.pipeline.Classify(*fv, s.clock.Now())
	if err != nil {
		s.stats.InferenceErrors++
		return result, fmt.Errorf("inference: %w", err)
	}

	s.history.Append(rec)
	s.stats.Classifications++
	result.Record = &rec
	return result, nil
}

// History returns the session's classification history.
func (s *Session) History() *ClassificationHistory { return s.history }

// LastSample returns the most recently accepted sample for live display.
func (s *Session) LastSample() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSample, s.haveSample
}

// WindowSnapshot returns a copy of the current window contents.
func (s *Session) WindowSnapshot() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Snapshot()
}

// WindowLen returns the current window fill level.
func (s *Session) WindowLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Len()
}

// Stats returns a copy of the per-session counters.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
