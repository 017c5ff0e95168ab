// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package streamloop contains a minimal input loop that reads top level
// elements from an XML stream and hands them to a handler.
// It stands in for a full session where one is not available, for example
// when replaying a recorded stream.
package streamloop // import "mellium.im/xmppsm/internal/streamloop"

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"

	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/marshal"
	"mellium.im/xmppsm/internal/ns"
	"mellium.im/xmppsm/sm"
	"mellium.im/xmppsm/stream"
)

// Serve decodes top level elements from r and delegates handling them to h.
// Writes made by the handler go to w, which is flushed after each element is
// handled if it is an xmlstream.Flusher.
//
// If the handler returns an error that wraps a stream.Error, the stream error
// is written to w and the handler's error is returned.
// If a stream error is read from r it is unmarshaled and returned.
// Whitespace between elements is ignored.
// Serve returns nil when r is exhausted or the stream end tag is read.
func Serve(ctx context.Context, r xml.TokenReader, w xmlstream.Encoder, h sm.Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := r.Token()
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		var start xml.StartElement
		switch t := tok.(type) {
		case nil:
			if err != nil {
				return nil
			}
			continue
		case xml.StartElement:
			start = t.Copy()
		case xml.EndElement:
			if t.Name.Space == ns.Stream && t.Name.Local == "stream" {
				return nil
			}
			return sendError(w, stream.BadFormat)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return sendError(w, stream.BadFormat)
			}
			if err != nil {
				return nil
			}
			continue
		default:
			if err != nil {
				return nil
			}
			continue
		}

		if start.Name.Space == ns.Stream && start.Name.Local == "error" {
			se := stream.Error{}
			d := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(start), r))
			if err := d.Decode(&se); err != nil {
				return err
			}
			return se
		}

		rw := conn{
			TokenReader: xmlstream.MultiReader(xmlstream.Inner(r), xmlstream.Token(start.End())),
			Encoder:     w,
		}
		if err := h.HandleXMPP(rw, &start); err != nil {
			return sendError(w, err)
		}
		if err := marshal.Flush(w); err != nil {
			return err
		}
		// Advance to the end of the current element before reading the next.
		if _, err := xmlstream.Copy(xmlstream.Discard(), rw); err != nil {
			return err
		}
	}
}

// conn is passed to handlers.
// Flush reaches the underlying writer so that handlers using
// marshal.WriteFlush send their responses immediately.
type conn struct {
	xml.TokenReader
	xmlstream.Encoder
}

func (c conn) Flush() error {
	return marshal.Flush(c.Encoder)
}

// sendError writes err to w if it wraps a stream error and returns err.
func sendError(w xmlstream.Encoder, err error) error {
	se := stream.Error{}
	if !errors.As(err, &se) {
		return err
	}
	if e := marshal.WriteFlush(w, se); e != nil {
		return e
	}
	return err
}
