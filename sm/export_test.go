// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

// SetCounters forces the counters of an enabled Manager so that tests can
// exercise wraparound without sending four billion stanzas.
// The outbound counter and the last acknowledged count are both set to out.
func SetCounters(m *Manager, in, out uint32) {
	m.out.Lock()
	defer m.out.Unlock()
	m.in.Store(in)
	m.out.count = out
	m.out.acked = out
}
