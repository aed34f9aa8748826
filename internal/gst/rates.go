// Package gst implements Indian GST rate resolution and the CGST/SGST/IGST split.
package gst

import "math"

// ValidRates are the GST slabs, in percent.
var ValidRates = []float64{0, 5, 12, 18, 28}

// FallbackRate replaces any rate that is not a slab.
const FallbackRate = 18.0

// IsValidRate reports whether rate rounds to a GST slab.
func IsValidRate(rate float64) bool {
	r := math.RoundToEven(rate)
	for _, v := range ValidRates {
		if r == v {
			return true
		}
	}
	return false
}

// NormalizeRate rounds rate to the nearest integer (ties to even) and returns
// that slab, or FallbackRate when the result is not a slab. 17.6 becomes 18,
// 4.9 becomes 5, 17 and 3 become 18.
func NormalizeRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || !IsValidRate(rate) {
		return FallbackRate
	}
	return math.RoundToEven(rate) + 0 // +0 turns -0 into 0
}
