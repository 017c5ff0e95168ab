// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"encoding/xml"
	"errors"
	"io"

	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/attr"
	"mellium.im/xmppsm/stanza"
)

// ErrReleaseTooMany is returned when more records are released from a Tracker
// than it holds.
var ErrReleaseTooMany = errors.New("sm: released more stanzas than are pending")

// Record is an outbound stanza along with the outbound counter value at the
// time it was sent.
// The first stanza sent after stream management is enabled has sequence
// number 0.
type Record struct {
	Seq uint32

	toks []xml.Token
}

func newRecord(seq uint32, toks []xml.Token) Record {
	return Record{Seq: seq, toks: toks}
}

// Name returns the name of the stanza element.
func (r Record) Name() xml.Name {
	start, _ := r.start()
	return start.Name
}

// Kind returns the type of stanza that was sent.
func (r Record) Kind() stanza.Kind {
	return stanza.KindOf(r.Name())
}

// ID returns the value of the stanza's id attribute, if any.
func (r Record) ID() string {
	start, _ := r.start()
	_, id := attr.Get(start.Attr, "id")
	return id
}

func (r Record) start() (xml.StartElement, bool) {
	if len(r.toks) == 0 {
		return xml.StartElement{}, false
	}
	start, ok := r.toks[0].(xml.StartElement)
	return start, ok
}

// TokenReader satisfies the xmlstream.Marshaler interface.
// It returns the stanza exactly as it was sent so that it can be resent.
func (r Record) TokenReader() xml.TokenReader {
	toks := tokenSlice(r.toks)
	return &toks
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (r Record) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

type tokenSlice []xml.Token

func (t *tokenSlice) Token() (xml.Token, error) {
	if len(*t) == 0 {
		return nil, io.EOF
	}
	tok := (*t)[0]
	*t = (*t)[1:]
	return tok, nil
}

// Tracker is a FIFO ledger of stanzas that have been sent but not yet
// acknowledged.
// Records are only ever appended to the end and released from the front.
//
// The zero value is an empty tracker ready for use.
// A Tracker is not safe for concurrent use; the Manager guards its tracker
// with the same lock that orders outbound stanzas.
type Tracker struct {
	recs []Record
}

// Add appends a record.
// Records are never reordered or deduplicated, so the same stanza must not be
// added twice.
func (t *Tracker) Add(r Record) {
	t.recs = append(t.recs, r)
}

// Len returns the number of pending records.
func (t *Tracker) Len() int {
	return len(t.recs)
}

// ReleaseFirst removes and returns the oldest n records in the order they were
// added.
// If n is larger than the number of pending records nothing is removed and
// ErrReleaseTooMany is returned.
func (t *Tracker) ReleaseFirst(n int) ([]Record, error) {
	if n < 0 || n > len(t.recs) {
		return nil, ErrReleaseTooMany
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]Record, n)
	copy(out, t.recs)
	clear(t.recs[:n])
	t.recs = t.recs[n:]
	if len(t.recs) == 0 {
		t.recs = nil
	}
	return out, nil
}

// Pending returns a copy of the pending records, oldest first.
func (t *Tracker) Pending() []Record {
	if len(t.recs) == 0 {
		return nil
	}
	out := make([]Record, len(t.recs))
	copy(out, t.recs)
	return out
}

// Drain removes and returns every pending record, oldest first.
func (t *Tracker) Drain() []Record {
	out := t.recs
	t.recs = nil
	return out
}
