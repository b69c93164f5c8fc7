// Package quant provides small statistical helpers shared by the
// Monte Carlo aggregation and scoring layers.
package quant

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Quantile returns the p-quantile (0 <= p <= 1) of data.
// The input slice is sorted in place.
func Quantile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sort.Float64s(data)
	return stat.Quantile(p, stat.Empirical, data, nil)
}

// QuantileSorted returns the p-quantile of already-sorted data.
func QuantileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Correlation returns the Pearson correlation coefficient of x and y.
// Degenerate inputs (short slices, zero variance) yield 0 rather than NaN.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
