// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package iter steps through the child elements of an XML element.
package iter // import "mellium.im/xmppsm/internal/iter"

import (
	"encoding/xml"
	"io"

	"mellium.im/xmlstream"
)

// Iter reads the children of an element one at a time.
// Character data, comments, and other tokens between children are skipped.
//
// Iter is used by the UnmarshalXML methods of elements that carry a condition
// or other payload as a child element.
type Iter struct {
	r      xml.TokenReader
	start  *xml.StartElement
	cur    xml.TokenReader
	err    error
	closed bool
}

// New returns an iterator over the children of the most recent start element
// already consumed from r.
// The end element of the parent is consumed when the iterator is exhausted or
// closed.
func New(r xml.TokenReader) *Iter {
	return &Iter{r: xmlstream.Inner(r)}
}

// Next advances to the next child and reports whether there is one.
// Anything left unread in the previous child is discarded first.
func (i *Iter) Next() bool {
	if i.err != nil || i.closed {
		return false
	}
	if i.cur != nil {
		if _, i.err = xmlstream.Copy(xmlstream.Discard(), i.cur); i.err != nil {
			return false
		}
		i.cur = nil
	}

	i.start = nil
	for {
		tok, err := i.r.Token()
		if start, ok := tok.(xml.StartElement); ok {
			start = start.Copy()
			i.start = &start
			i.cur = xmlstream.MultiReader(xmlstream.Inner(i.r), xmlstream.Token(start.End()))
			return true
		}
		if err != nil {
			if err != io.EOF {
				i.err = err
			}
			return false
		}
	}
}

// Current returns the start element of the current child and a reader over
// the rest of it, including its end element.
func (i *Iter) Current() (*xml.StartElement, xml.TokenReader) {
	return i.start, i.cur
}

// Err returns the first error encountered by the iterator, if any.
func (i *Iter) Err() error {
	return i.err
}

// Close discards the remaining children.
// Calling it more than once has no effect.
func (i *Iter) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	_, err := xmlstream.Copy(xmlstream.Discard(), i.r)
	return err
}
