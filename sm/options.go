// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"github.com/sirupsen/logrus"
)

// Option is used to configure a Manager.
type Option func(*Manager)

// Logger sets the logger used for debug messages and warnings about
// suspicious answers from the remote entity.
// By default nothing is logged.
func Logger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// OnAck registers f to be called once for every stanza acknowledged by the
// remote entity.
// Calls are made in the order the stanzas were sent and never concurrently.
// f may send new stanzas through the Manager.
// OnAck may be given more than once; the functions are called in the order
// they were registered.
func OnAck(f func(Record)) Option {
	return func(m *Manager) {
		m.onAck = append(m.onAck, f)
	}
}

// RequestEvery causes Send to follow every nth tracked stanza with a request
// for an acknowledgement.
// Zero (the default) disables automatic requests.
func RequestEvery(n uint32) Option {
	return func(m *Manager) {
		m.requestEvery = n
	}
}
