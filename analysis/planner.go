package analysis

import (
	"errors"
	"fmt"
)

// Batch is a contiguous window [Start, End) over the filtered review list.
type Batch struct {
	// Index is the zero-based batch number; Start == Index*size.
	Index int
	Start int
	End   int
}

func (b Batch) Len() int { return b.End - b.Start }

func (b Batch) String() string {
	return fmt.Sprintf("batch %d [%d,%d)", b.Index, b.Start, b.End)
}

// PlanBatches splits n reviews into ceil(n/size) contiguous, non-overlapping windows covering [0, n).
// The last window may be shorter than size.
func PlanBatches(n, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, &ConfigError{Field: "batch_size", Err: fmt.Errorf("must be > 0 (got %d)", size)}
	}
	if n < 0 {
		return nil, errors.New("PlanBatches: n must be >= 0")
	}

	out := make([]Batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, Batch{Index: len(out), Start: start, End: end})
	}
	return out, nil
}

// PendingBatches drops every batch already covered by the cursor (start <= lastBatchIdx).
// A nil cursor keeps every batch.
func PendingBatches(batches []Batch, lastBatchIdx *int) []Batch {
	if lastBatchIdx == nil {
		return batches
	}
	out := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Start <= *lastBatchIdx {
			continue
		}
		out = append(out, b)
	}
	return out
}
