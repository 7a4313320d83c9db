package nozzle

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationHistoryOrder(t *testing.T) {
	t.Parallel()

	h := NewClassificationHistory()
	assert.Equal(t, 0, h.Len())

	_, ok := h.Last()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		h.Append(Classification{ID: fmt.Sprintf("rec-%d", i)})
	}

	require.Equal(t, 5, h.Len())
	all := h.All()
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("rec-%d", i), rec.ID)
	}

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "rec-4", last.ID)
}

func TestClassificationHistoryAllIsCopy(t *testing.T) {
	t.Parallel()

	h := NewClassificationHistory()
	h.Append(Classification{ID: "a"})

	all := h.All()
	h.Append(Classification{ID: "b"})
	assert.Len(t, all, 1)
}

func TestClassificationHistoryTally(t *testing.T) {
	t.Parallel()

	h := NewClassificationHistory()
	assert.Empty(t, h.Tally())

	h.Append(Classification{Label: "Clogged"})
	h.Append(Classification{Label: "Unclogged"})
	h.Append(Classification{Label: "Unclogged"})
	h.Append(Classification{Label: "Unclogged"})

	tally := h.Tally()
	assert.InDelta(t, 25.0, tally["Clogged"], 1e-9)
	assert.InDelta(t, 75.0, tally["Unclogged"], 1e-9)
}

func TestClassificationHistoryConcurrentAppends(t *testing.T) {
	t.Parallel()

	h := NewClassificationHistory()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Append(Classification{Label: "Unclogged"})
				h.Tally()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, h.Len())
}
