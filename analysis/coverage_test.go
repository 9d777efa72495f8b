package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCoverage_HalfCovered(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Merge("Sound", []int{0, 2}, []int{4})
	s.Merge("Battery", nil, []int{6, 8})
	s.Merge("Ads", []int{2, 42}, nil)

	ids := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	c := ComputeCoverage(ids, s)
	assert.Equal(t, 10, c.Total)
	assert.Equal(t, 5, c.Covered)
	assert.InDelta(t, 0.5, c.Ratio, 1e-9)
	assert.Equal(t, []int{1, 3, 5, 7, 9}, c.Unattended)
}

func TestComputeCoverage_EmptyInputs(t *testing.T) {
	t.Parallel()

	c := ComputeCoverage(nil, NewStore())
	assert.Equal(t, 0, c.Total)
	assert.Zero(t, c.Ratio)
	assert.Empty(t, c.Unattended)

	c = ComputeCoverage([]int{0, 1}, nil)
	assert.Equal(t, []int{0, 1}, c.Unattended)
	assert.Zero(t, c.Ratio)
}
