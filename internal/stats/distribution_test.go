package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/openpay/internal/types"
)

func TestDistribution(t *testing.T) {
	records := []types.CleanedSalaryRecord{
		rec("A", 40000, 0),
		rec("B", 45000, 0),
		rec("C", 50000, 0),
		rec("D", 60000, 0),
		rec("E", 80000, 0),
	}

	bins := Distribution(records, 4)
	require.Len(t, bins, 4)

	assert.Equal(t, 40000.0, bins[0].RangeStart)
	assert.Equal(t, 50000.0, bins[0].RangeEnd)
	assert.Equal(t, 80000.0, bins[3].RangeEnd)

	counts := []int{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count}
	assert.Equal(t, []int{2, 1, 1, 1}, counts, "the maximum lands in the last bin")
	assert.InDelta(t, 0.4, bins[0].Percentage, 1e-9)

	total := 0
	share := 0.0
	for _, b := range bins {
		total += b.Count
		share += b.Percentage
	}
	assert.Equal(t, len(records), total)
	assert.InDelta(t, 1.0, share, 1e-9, "percentages are fractions of the sample")
}

func TestDistribution_DefaultBins(t *testing.T) {
	records := []types.CleanedSalaryRecord{rec("A", 10000, 0), rec("B", 90000, 0)}
	assert.Len(t, Distribution(records, 0), DefaultBins)
}

func TestDistribution_SingleValue(t *testing.T) {
	records := []types.CleanedSalaryRecord{rec("A", 50000, 0), rec("B", 50000, 0)}

	bins := Distribution(records, 10)
	require.Len(t, bins, 1)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 1.0, bins[0].Percentage)
}

func TestDistribution_Empty(t *testing.T) {
	assert.Empty(t, Distribution(nil, 10))
}
