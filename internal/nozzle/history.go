package nozzle

import "sync"

// ClassificationHistory is the append-only log of classification records for
// one session, in evaluation order. Appends are atomic so HTTP handlers and
// chart renderers can read concurrently with the evaluation loop.
type ClassificationHistory struct {
	mu      sync.Mutex
	records []Classification
}

// NewClassificationHistory creates an empty history.
func NewClassificationHistory() *ClassificationHistory {
	return &ClassificationHistory{}
}

// Append adds a record to the end of the history.
func (h *ClassificationHistory) Append(rec Classification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
}

// Len returns the number of recorded classifications.
func (h *ClassificationHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// All returns a copy of the history in insertion order.
func (h *ClassificationHistory) All() []Classification {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Classification, len(h.records))
	copy(out, h.records)
	return out
}

// Last returns the most recent record, if any.
func (h *ClassificationHistory) Last() (Classification, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return Classification{}, false
	}
	return h.records[len(h.records)-1], true
}

// Tally returns the percentage of records per state label. An empty history
// returns an empty map.
func (h *ClassificationHistory) Tally() map[string]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]float64)
	if len(h.records) == 0 {
		return out
	}
	for _, rec := range h.records {
		out[rec.Label]++
	}
	total := float64(len(h.records))
	for label, count := range out {
		out[label] = count / total * 100
	}
	return out
}
