package aggregator

import (
	"math"
	"slices"
)

// precision is the number of decimal places summary values are rounded to.
const precision = 4

// Stats are the summary statistics of a set of values. Every field is nil
// for an empty set.
type Stats struct {
	Average *float64
	Median  *float64
	Min     *float64
	Max     *float64
	Total   *float64
}

// Describe computes rounded statistics over values.
func Describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Stats{
		Average: rounded(sum / float64(n)),
		Median:  rounded(median),
		Min:     rounded(sorted[0]),
		Max:     rounded(sorted[n-1]),
		Total:   rounded(sum),
	}
}

// Round rounds v half away from zero to four decimal places.
func Round(v float64) float64 {
	scale := math.Pow10(precision)
	return math.Round(v*scale) / scale
}

func rounded(v float64) *float64 {
	r := Round(v)
	return &r
}
