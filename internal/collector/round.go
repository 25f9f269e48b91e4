package collector

import "math"

// precision is the number of decimal places kept for utilization ratios.
const precision = 4

var scale = math.Pow(10, precision)

// Round normalizes a utilization value to a fixed decimal precision.
// Non-finite values become 0 so reports always serialize.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*scale) / scale
}
