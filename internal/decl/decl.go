// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package decl recognizes the XML declaration and stream header that open an
// XMPP stream so that recorded streams can be read element by element.
package decl // import "mellium.im/xmppsm/internal/decl"

import (
	"encoding/xml"

	"mellium.im/xmppsm/internal/ns"
)

type skipper struct {
	r       xml.TokenReader
	started bool
}

func (r *skipper) Token() (xml.Token, error) {
	tok, err := r.r.Token()
	if r.started || tok == nil {
		return tok, err
	}
	r.started = true
	if proc, ok := tok.(xml.ProcInst); ok && proc.Target == "xml" {
		if err != nil {
			return nil, err
		}
		return r.r.Token()
	}
	return tok, err
}

// Skip wraps a token reader and drops an XML declaration if it is the first
// token.
func Skip(r xml.TokenReader) xml.TokenReader {
	return &skipper{r: r}
}

// IsStreamHeader reports whether start opens an XMPP stream.
func IsStreamHeader(start xml.StartElement) bool {
	return start.Name.Space == ns.Stream && start.Name.Local == "stream"
}
