// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package marshal contains helpers for writing elements to token streams.
package marshal // import "mellium.im/xmppsm/internal/marshal"

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// EncodeXML copies the tokens of m to e and flushes e.
// It lets types that implement xmlstream.Marshaler also implement
// xml.Marshaler.
func EncodeXML(e *xml.Encoder, m xmlstream.Marshaler) error {
	_, err := xmlstream.Copy(e, m.TokenReader())
	if err != nil {
		return err
	}
	return e.Flush()
}

// Flush calls the Flush method of w if it is an xmlstream.Flusher.
func Flush(w xmlstream.TokenWriter) error {
	if f, ok := w.(xmlstream.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// WriteFlush writes v to w and then flushes w.
// Errors from w are returned unchanged.
func WriteFlush(w xmlstream.TokenWriter, v xmlstream.WriterTo) error {
	_, err := v.WriteXML(w)
	if err != nil {
		return err
	}
	return Flush(w)
}
