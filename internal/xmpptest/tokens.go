// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides utilities for testing stream management without a
// network connection.
package xmpptest // import "mellium.im/xmppsm/internal/xmpptest"

import (
	"encoding/xml"
	"io"
	"strings"

	"mellium.im/xmlstream"
)

// Tokens is a slice of XML tokens that can also act as an xml.TokenReader by
// popping tokens from itself.
// It lets tests feed tokens that an xml.Decoder would refuse to produce.
type Tokens []xml.Token

// Token satisfies the xml.TokenReader interface for Tokens.
func (r *Tokens) Token() (xml.Token, error) {
	if len(*r) == 0 {
		return nil, io.EOF
	}

	var t xml.Token
	t, *r = (*r)[0], (*r)[1:]
	return t, nil
}

// Decoder returns a token reader over the XML in s.
func Decoder(s string) xml.TokenReader {
	return xml.NewDecoder(strings.NewReader(s))
}

// Encode copies every token from r into a string.
// Encoding errors are returned with whatever output was produced.
func Encode(r xml.TokenReader) (string, error) {
	var buf strings.Builder
	e := xml.NewEncoder(&buf)
	_, err := xmlstream.Copy(e, r)
	if err != nil {
		return buf.String(), err
	}
	err = e.Flush()
	return buf.String(), err
}
