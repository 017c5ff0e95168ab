// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package sm implements the acknowledgement counters of XEP-0198: Stream
// Management.
//
// Once stream management is enabled both entities count the stanzas they have
// handled.
// Either side may request the other's count with an <r/> element and the other
// side answers with <a h='…'/>.
// The sender uses the answer to discover which of its stanzas arrived and
// forgets them; anything still unacknowledged when the stream goes away can be
// resent on a resumed stream or reported to the user as failed.
//
// Counters are unsigned 32-bit integers that wrap from 2^32-1 to 0, so all
// arithmetic on them is modulo 2^32 (see Diff).
//
// The Manager does not own a connection.
// Outbound stanzas are written through Send, which counts them as they are
// handed to the transport, and inbound elements are fed through the handler
// returned by Manager.Handler.
package sm // import "mellium.im/xmppsm/sm"

import (
	"mellium.im/xmppsm/internal/ns"
)

// NS is the XML namespace used by stream management.
// It is provided as a convenience.
const NS = ns.SM
