package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBatches_CoversRangeWithoutOverlap(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ n, size int }{{0, 5}, {1, 5}, {5, 5}, {7, 3}, {10, 1}, {101, 50}} {
		batches, err := PlanBatches(tc.n, tc.size)
		require.NoError(t, err)
		require.Len(t, batches, (tc.n+tc.size-1)/tc.size, "n=%d size=%d", tc.n, tc.size)

		next := 0
		for i, b := range batches {
			assert.Equal(t, i, b.Index)
			assert.Equal(t, i*tc.size, b.Start)
			assert.Equal(t, next, b.Start)
			assert.LessOrEqual(t, b.Len(), tc.size)
			assert.Positive(t, b.Len())
			next = b.End
		}
		assert.Equal(t, tc.n, next, "n=%d size=%d", tc.n, tc.size)
	}
}

func TestPlanBatches_RejectsNonPositiveSize(t *testing.T) {
	t.Parallel()

	_, err := PlanBatches(10, 0)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "batch_size", cfgErr.Field)
}

func TestPendingBatches_SkipsCoveredStarts(t *testing.T) {
	t.Parallel()

	batches, err := PlanBatches(7, 2)
	require.NoError(t, err)

	assert.Len(t, PendingBatches(batches, nil), 4)

	last := 2
	pending := PendingBatches(batches, &last)
	require.Len(t, pending, 2)
	assert.Equal(t, 4, pending[0].Start)
	assert.Equal(t, 6, pending[1].Start)

	last = 6
	assert.Empty(t, PendingBatches(batches, &last))
}
