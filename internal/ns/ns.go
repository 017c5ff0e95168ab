// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the stream
// management packages and other internal packages.
package ns // import "mellium.im/xmppsm/internal/ns"

// List of commonly used namespaces.
const (
	Client  = "jabber:client"
	Server  = "jabber:server"
	SM      = "urn:xmpp:sm:3"
	Stanza  = "urn:ietf:params:xml:ns:xmpp-stanzas"
	Stream  = "http://etherx.jabber.org/streams"
	Streams = "urn:ietf:params:xml:ns:xmpp-streams"
	XML     = "http://www.w3.org/XML/1998/namespace"
)
