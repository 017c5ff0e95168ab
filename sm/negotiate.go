// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/marshal"
)

// Negotiate enables stream management from the initiating side.
// It writes req to rw and reads the response.
// If the receiving entity answers with <enabled/> the Manager is enabled and
// the response is returned.
// If it answers with <failed/> the Failed value is returned as the error and
// the Manager stays disabled.
//
// Negotiate should be called after resource binding and before any stanzas
// are sent.
// If the Manager is already enabled ErrAlreadyEnabled is returned and nothing
// is written; Close the Manager first to collect the stanzas of the old
// stream.
// The context is only checked between tokens; it cannot interrupt a blocked
// read.
func (m *Manager) Negotiate(ctx context.Context, rw xmlstream.TokenReadWriter, req Enable) (Enabled, error) {
	if m.enabled.Load() {
		return Enabled{}, ErrAlreadyEnabled
	}
	if err := m.write(rw, req); err != nil {
		return Enabled{}, err
	}
	start, err := nextStart(ctx, rw)
	if err != nil {
		return Enabled{}, err
	}
	d := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(start), rw))
	switch {
	case start.Name.Space == NS && start.Name.Local == "enabled":
		e := Enabled{}
		if err = d.Decode(&e); err != nil {
			return Enabled{}, err
		}
		m.out.Lock()
		defer m.out.Unlock()
		if m.enabled.Load() {
			return Enabled{}, ErrAlreadyEnabled
		}
		m.enableLocked(e)
		return e, nil
	case start.Name.Space == NS && start.Name.Local == "failed":
		f := Failed{}
		if err = d.Decode(&f); err != nil {
			return Enabled{}, err
		}
		return Enabled{}, f
	}
	return Enabled{}, fmt.Errorf("%w: %s", ErrUnexpectedElement, start.Name.Local)
}

// Accept enables stream management from the receiving side in response to
// req and writes the <enabled/> element to w.
// If resumption was requested the stream is given a random ID.
// The Manager is enabled only if the write succeeds.
//
// If stream management is already enabled on the stream, <failed/> with an
// unexpected-request condition is written instead and returned as the error,
// wrapped with ErrAlreadyEnabled.
func (m *Manager) Accept(w xmlstream.TokenWriter, req Enable) (Enabled, error) {
	e := Enabled{Resume: req.Resume}
	if req.Resume {
		e.ID = uuid.NewString()
		e.Max = req.Max
	}

	m.out.Lock()
	defer m.out.Unlock()
	if m.enabled.Load() {
		f := Failed{Condition: "unexpected-request"}
		if err := marshal.WriteFlush(w, f); err != nil {
			return Enabled{}, err
		}
		return Enabled{}, fmt.Errorf("%w: %w", ErrAlreadyEnabled, f)
	}
	if err := marshal.WriteFlush(w, e); err != nil {
		return Enabled{}, err
	}
	m.enableLocked(e)
	return e, nil
}

// Resume asks the receiving entity to resume the stream with the given ID on
// the new connection rw.
// If prevID is empty the ID from the last negotiation is used.
// The Manager must still hold the state of the old stream, so Close must not
// have been called.
//
// On success the stanzas acknowledged by the <resumed/> element are passed to
// the OnAck callbacks and the remaining unacknowledged stanzas are returned in
// the order they were sent.
// They are no longer tracked and should be resent with Send.
// If the receiving entity answers with <failed/> the Failed value is returned
// as the error; any acknowledgement it carries is processed first, and the
// caller should then Close the Manager to collect what is left.
func (m *Manager) Resume(ctx context.Context, rw xmlstream.TokenReadWriter, prevID string) ([]Record, error) {
	if !m.enabled.Load() {
		return nil, ErrNotEnabled
	}
	if prevID == "" {
		prevID = m.ID()
	}
	if err := m.write(rw, Resume{H: m.in.Load(), PrevID: prevID}); err != nil {
		return nil, err
	}
	start, err := nextStart(ctx, rw)
	if err != nil {
		return nil, err
	}
	d := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(start), rw))
	switch {
	case start.Name.Space == NS && start.Name.Local == "resumed":
		r := Resumed{}
		if err = d.Decode(&r); err != nil {
			return nil, err
		}
		return m.Resumed(r.H)
	case start.Name.Space == NS && start.Name.Local == "failed":
		f := Failed{}
		if err = d.Decode(&f); err != nil {
			return nil, err
		}
		if f.HasH {
			if _, err = m.HandleAnswer(f.H); err != nil {
				return nil, err
			}
		}
		return nil, f
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedElement, start.Name.Local)
}

// AcceptResume resumes a stream from the receiving side.
// If req names the stream this Manager is tracking, <resumed/> is written to
// w and the result of Resumed(req.H) is returned.
// Otherwise <failed/> with an item-not-found condition is written and returned
// as the error.
func (m *Manager) AcceptResume(w xmlstream.TokenWriter, req Resume) ([]Record, error) {
	id := m.ID()
	if !m.enabled.Load() || id == "" || req.PrevID != id {
		f := Failed{Condition: "item-not-found"}
		if err := m.write(w, f); err != nil {
			return nil, err
		}
		return nil, f
	}
	if err := m.write(w, Resumed{H: m.in.Load(), PrevID: id}); err != nil {
		return nil, err
	}
	return m.Resumed(req.H)
}

// Resumed reconciles the Manager after a stream was resumed and the remote
// entity reported that it handled h stanzas.
// Stanzas covered by h are acknowledged, the outbound counter is rewound to h,
// and the remaining stanzas are removed from the pending list and returned so
// that they can be sent again.
// The inbound counter is not changed.
func (m *Manager) Resumed(h uint32) ([]Record, error) {
	m.ackMu.Lock()
	defer m.ackMu.Unlock()

	m.out.Lock()
	if !m.enabled.Load() {
		m.out.Unlock()
		return nil, ErrNotEnabled
	}
	acked, err := m.releaseLocked(h)
	if err != nil {
		m.out.Unlock()
		return nil, err
	}
	rest := m.out.pending.Drain()
	m.out.count = m.out.acked
	m.out.sinceReq = 0
	m.out.Unlock()

	m.log.WithFields(logrus.Fields{
		"h":      h,
		"acked":  len(acked),
		"resend": len(rest),
	}).Debug("sm: resumed")
	m.notify(acked)
	return rest, nil
}

func (m *Manager) write(w xmlstream.TokenWriter, v xmlstream.WriterTo) error {
	m.out.Lock()
	defer m.out.Unlock()
	return marshal.WriteFlush(w, v)
}

// nextStart pops tokens until it finds the start of an element, skipping
// whitespace, comments, and processing instructions.
func nextStart(ctx context.Context, r xml.TokenReader) (xml.StartElement, error) {
	for {
		if err := ctx.Err(); err != nil {
			return xml.StartElement{}, err
		}
		tok, err := r.Token()
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Copy(), nil
		case xml.EndElement:
			return xml.StartElement{}, fmt.Errorf("%w: </%s>", ErrUnexpectedElement, t.Name.Local)
		}
		if err == io.EOF {
			return xml.StartElement{}, io.ErrUnexpectedEOF
		}
		if err != nil {
			return xml.StartElement{}, err
		}
	}
}
