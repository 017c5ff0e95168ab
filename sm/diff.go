// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

// Diff returns the number of increments it takes for a counter to get from b
// to a, that is (a - b) mod 2^32.
//
// For example, Diff(2, 0xFFFFFFFF) is 3 because the counter wraps from
// 0xFFFFFFFF to 0 and then counts up to 1 and 2.
func Diff(a, b uint32) uint32 {
	return a - b
}
