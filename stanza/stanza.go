// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmppsm/internal/ns"
)

// Kind is the type of a top level stanza.
type Kind uint8

// A list of stanza kinds.
const (
	// None is returned for elements that are not stanzas.
	None Kind = iota
	Message
	Presence
	IQ
)

// String satisfies fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Message:
		return "message"
	case Presence:
		return "presence"
	case IQ:
		return "iq"
	}
	return "none"
}

// KindOf returns the kind of stanza with the given name.
// Stanzas must be in the client or server namespace.
func KindOf(name xml.Name) Kind {
	if name.Space != ns.Client && name.Space != ns.Server {
		return None
	}
	switch name.Local {
	case "message":
		return Message
	case "presence":
		return Presence
	case "iq":
		return IQ
	}
	return None
}

// Is tests whether name is a valid stanza based on name and space.
func Is(name xml.Name) bool {
	return KindOf(name) != None
}
