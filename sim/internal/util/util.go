// Package util provides generic utility functions shared across sim/ sub-packages.
package util

// Len64 returns the length of a slice as int64.
func Len64[T any](v []T) int64 { return int64(len(v)) }

// Sum64 returns the sum of an int64 slice.
func Sum64(v []int64) int64 {
	var s int64
	for _, x := range v {
		s += x
	}
	return s
}
