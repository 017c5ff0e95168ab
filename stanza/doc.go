// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza classifies the top level elements of an XMPP stream.
//
// Stanzas (Message, Presence, and IQ) are the "primitives" of XMPP.
// Only stanzas are counted by stream management; other first-level elements
// such as stream errors, SASL negotiation, or the stream management elements
// themselves are not.
package stanza // import "mellium.im/xmppsm/stanza"
