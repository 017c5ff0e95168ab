// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stream contains XMPP stream errors as defined by RFC 6120 §4.9.
//
// Stream errors are unrecoverable: after one is sent the stream is closed.
// The stream management packages return them when the remote entity violates
// the acknowledgement protocol so that the session layer can transmit them and
// tear down the stream.
package stream // import "mellium.im/xmppsm/stream"

import (
	"mellium.im/xmppsm/internal/ns"
)

// Namespaces used by XMPP streams and stream errors, provided as a convenience.
const (
	NS      = ns.Stream
	ErrorNS = ns.Streams
)
