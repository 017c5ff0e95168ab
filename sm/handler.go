// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"encoding/xml"
	"errors"
	"fmt"

	"mellium.im/xmlstream"
	"mellium.im/xmppsm/stanza"
	"mellium.im/xmppsm/stream"
)

// A Handler responds to top level elements read from an XML stream.
// t reads the rest of the element after start; writes to t go to the stream.
type Handler interface {
	HandleXMPP(t xmlstream.TokenReadEncoder, start *xml.StartElement) error
}

// The HandlerFunc type is an adapter to allow the use of ordinary functions as
// handlers.
// If f is a function with the appropriate signature, HandlerFunc(f) is a
// Handler that calls f.
type HandlerFunc func(t xmlstream.TokenReadEncoder, start *xml.StartElement) error

// HandleXMPP calls f(t, start).
func (f HandlerFunc) HandleXMPP(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	return f(t, start)
}

// Handler returns a handler that processes stream management requests and
// answers and counts every stanza after next has handled it.
// All other elements are passed to next without being counted.
// If next is nil, stanzas are counted and otherwise ignored.
//
// Errors that should end the stream wrap a stream.Error: protocol violations
// by the remote entity can be detected with errors.As.
func (m *Manager) Handler(next Handler) Handler {
	return HandlerFunc(func(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
		if start.Name.Space == NS {
			switch start.Name.Local {
			case "r":
				return notEnabled(m.HandleRequest(t))
			case "a":
				a := Answer{}
				err := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(*start), t)).Decode(&a)
				if err != nil {
					return fmt.Errorf("%w: %w", stream.BadFormat, err)
				}
				_, err = m.HandleAnswer(a.H)
				return notEnabled(err)
			}
		}

		if next != nil {
			if err := next.HandleXMPP(t, start); err != nil {
				return err
			}
		}
		if stanza.Is(start.Name) {
			m.IncInbound()
		}
		return nil
	})
}

// notEnabled turns requests and answers received before stream management
// was enabled into a stream error.
func notEnabled(err error) error {
	if errors.Is(err, ErrNotEnabled) {
		return fmt.Errorf("%w: %w", stream.UnsupportedStanzaType, err)
	}
	return err
}
