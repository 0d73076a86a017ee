package stats

import (
	"math"

	"github.com/jonathan/openpay/internal/types"
)

// DefaultBins is the histogram resolution used when none is given.
const DefaultBins = 10

// Distribution buckets compensations into bins of equal width between min and max.
// The last bin is closed on max. All values equal yields a single bin.
// Percentage is a fraction of the sample, in [0, 1], as in RemoteBreakdown.
func Distribution(records []types.CleanedSalaryRecord, bins int) []types.DistributionBin {
	if len(records) == 0 {
		return []types.DistributionBin{}
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		lo = math.Min(lo, r.Compensation)
		hi = math.Max(hi, r.Compensation)
	}

	n := float64(len(records))
	if hi == lo {
		return []types.DistributionBin{{RangeStart: lo, RangeEnd: hi, Count: len(records), Percentage: 1}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]types.DistributionBin, bins)
	for i := range out {
		out[i].RangeStart = lo + float64(i)*width
		out[i].RangeEnd = lo + float64(i+1)*width
	}
	out[bins-1].RangeEnd = hi

	for _, r := range records {
		idx := int((r.Compensation - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	for i := range out {
		out[i].Percentage = float64(out[i].Count) / n
	}
	return out
}
