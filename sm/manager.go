// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"encoding/xml"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/marshal"
	"mellium.im/xmppsm/stanza"
)

// Manager counts the stanzas sent and received on a stream and reconciles
// the stanzas it sent against the acknowledgements of the remote entity.
//
// A new Manager is disabled: nothing is counted or tracked until Enable is
// called (directly or by a successful negotiation).
// Close disables it again and reports every stanza that was never
// acknowledged.
//
// All methods are safe for concurrent use.
// Stanzas sent through Send receive sequence numbers in the order they are
// written to the transport.
type Manager struct {
	log          logrus.FieldLogger
	onAck        []func(Record)
	requestEvery uint32

	enabled atomic.Bool
	in      atomic.Uint32
	total   atomic.Uint64

	// ackMu keeps acknowledgement callbacks in send order without holding the
	// outbound lock while they run.
	ackMu sync.Mutex

	out struct {
		sync.Mutex
		count    uint32
		acked    uint32
		sinceReq uint32
		pending  Tracker
		id       string
		resume   bool
	}
}

// New creates a disabled Manager.
func New(opts ...Option) *Manager {
	m := &Manager{}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		m.log = l
	}
	return m
}

// Stats is a snapshot of the state of a Manager.
type Stats struct {
	Enabled bool

	// Inbound is the number of stanzas handled, modulo 2^32.
	Inbound uint32

	// Outbound is the number of stanzas sent, modulo 2^32.
	Outbound uint32

	// Acked is the last handled count reported by the remote entity.
	Acked uint32

	// Pending is the number of sent stanzas that have not been acknowledged.
	Pending int

	// TotalAcked is the number of stanzas acknowledged over the lifetime of the
	// Manager.
	TotalAcked uint64
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.out.Lock()
	defer m.out.Unlock()
	return Stats{
		Enabled:    m.enabled.Load(),
		Inbound:    m.in.Load(),
		Outbound:   m.out.count,
		Acked:      m.out.acked,
		Pending:    m.out.pending.Len(),
		TotalAcked: m.total.Load(),
	}
}

// Enable turns on counting and tracking for a new stream.
// Both counters are reset to zero.
// If the previous stream was never closed, the stanzas it left
// unacknowledged are removed and returned oldest first, as Close would have
// returned them.
func (m *Manager) Enable() []Record {
	m.out.Lock()
	defer m.out.Unlock()
	return m.enableLocked(Enabled{})
}

func (m *Manager) enableLocked(e Enabled) []Record {
	stale := m.out.pending.Drain()
	if len(stale) > 0 {
		m.log.WithField("unacked", len(stale)).Warn("sm: stream reset with unacknowledged stanzas")
	}
	m.out.count = 0
	m.out.acked = 0
	m.out.sinceReq = 0
	m.out.id = e.ID
	m.out.resume = e.Resume
	m.in.Store(0)
	m.enabled.Store(true)
	m.log.WithFields(logrus.Fields{
		"id":     e.ID,
		"resume": e.Resume,
	}).Debug("sm: enabled")
	return stale
}

// Enabled reports whether stream management is active.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

// ID returns the resumption ID of the stream, if any.
func (m *Manager) ID() string {
	m.out.Lock()
	defer m.out.Unlock()
	return m.out.id
}

// Close disables stream management for the current stream.
// It returns the stanzas that were never acknowledged, oldest first, so that
// the caller can decide whether to resend them on a new stream or report them
// as failed.
// Counters are reset and the pending list is emptied.
func (m *Manager) Close() []Record {
	m.out.Lock()
	defer m.out.Unlock()

	if !m.enabled.Load() {
		return nil
	}
	m.enabled.Store(false)
	recs := m.out.pending.Drain()
	m.out.count = 0
	m.out.acked = 0
	m.out.sinceReq = 0
	m.out.id = ""
	m.out.resume = false
	m.in.Store(0)
	m.log.WithField("unacked", len(recs)).Debug("sm: closed")
	return recs
}

// IncInbound counts an inbound stanza and returns the new inbound count.
// It should be called once for every message, presence, or IQ after it has
// been handled.
// Nothing is counted while the Manager is disabled.
func (m *Manager) IncInbound() uint32 {
	if !m.enabled.Load() {
		return m.in.Load()
	}
	return m.in.Add(1)
}

// Inbound returns the number of stanzas handled, modulo 2^32.
func (m *Manager) Inbound() uint32 {
	return m.in.Load()
}

// Outbound returns the number of stanzas sent, modulo 2^32.
func (m *Manager) Outbound() uint32 {
	m.out.Lock()
	defer m.out.Unlock()
	return m.out.count
}

// Pending returns the stanzas that have been sent but not acknowledged,
// oldest first.
func (m *Manager) Pending() []Record {
	m.out.Lock()
	defer m.out.Unlock()
	return m.out.pending.Pending()
}

// Send copies tokens from r to w and tracks each top level stanza it
// encounters.
// Other top level elements (including stream management elements and
// whitespace) are written but not counted.
// If w is an xmlstream.Flusher it is flushed before Send returns.
//
// Writing a stanza, assigning its sequence number, and adding it to the
// pending list happen under one lock, so concurrent calls to Send never
// interleave and sequence numbers always match the order on the wire.
// A stanza is tracked as soon as its end element has been written, even if a
// later write or the flush fails.
func (m *Manager) Send(w xmlstream.TokenWriter, r xml.TokenReader) error {
	m.out.Lock()
	defer m.out.Unlock()

	var (
		depth   int
		capture bool
		toks    []xml.Token
	)
	track := m.enabled.Load()
	for {
		tok, err := r.Token()
		if tok != nil {
			if e := w.EncodeToken(tok); e != nil {
				return e
			}
			switch t := tok.(type) {
			case xml.StartElement:
				if depth == 0 {
					capture = track && stanza.Is(t.Name)
					toks = nil
				}
				depth++
			case xml.EndElement:
				depth--
			}
			if capture {
				toks = append(toks, xml.CopyToken(tok))
				if depth == 0 {
					m.markLocked(toks)
					capture = false
					toks = nil
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := marshal.Flush(w); err != nil {
		return err
	}
	if m.requestEvery > 0 && m.out.sinceReq >= m.requestEvery {
		return m.requestLocked(w)
	}
	return nil
}

// MarkUnacked tracks a stanza that the caller has already handed to the
// transport itself.
// It reads a single element from r.
//
// Callers must make sure that calls to MarkUnacked happen in the same order
// that stanzas were written; Send does this automatically and should be
// preferred.
func (m *Manager) MarkUnacked(r xml.TokenReader) (Record, error) {
	toks, err := readElement(r)
	if err != nil {
		return Record{}, err
	}
	if start := toks[0].(xml.StartElement); !stanza.Is(start.Name) {
		return Record{}, ErrNotStanza
	}

	m.out.Lock()
	defer m.out.Unlock()
	if !m.enabled.Load() {
		return Record{}, ErrNotEnabled
	}
	return m.markLocked(toks), nil
}

func (m *Manager) markLocked(toks []xml.Token) Record {
	rec := newRecord(m.out.count, toks)
	m.out.pending.Add(rec)
	m.out.count++
	m.out.sinceReq++
	return rec
}

// RequestAck writes a request for an acknowledgement (<r/>) to w.
func (m *Manager) RequestAck(w xmlstream.TokenWriter) error {
	m.out.Lock()
	defer m.out.Unlock()
	if !m.enabled.Load() {
		return ErrNotEnabled
	}
	return m.requestLocked(w)
}

func (m *Manager) requestLocked(w xmlstream.TokenWriter) error {
	m.out.sinceReq = 0
	return marshal.WriteFlush(w, Request{})
}

// HandleRequest answers a request from the remote entity by writing the
// current inbound count (<a h='…'/>) to w.
// Errors from w are returned unchanged.
func (m *Manager) HandleRequest(w xmlstream.TokenWriter) error {
	m.out.Lock()
	defer m.out.Unlock()
	if !m.enabled.Load() {
		return ErrNotEnabled
	}
	h := m.in.Load()
	if err := marshal.WriteFlush(w, Answer{H: h}); err != nil {
		return err
	}
	m.log.WithField("h", h).Debug("sm: answered request")
	return nil
}

// HandleAnswer processes an answer from the remote entity that reports it has
// handled h stanzas.
// The stanzas newly covered by h are removed from the pending list and passed
// to the OnAck callbacks in the order they were sent.
// It returns the number of stanzas that were newly acknowledged.
//
// Repeating the previous answer acknowledges nothing.
// If h accounts for more stanzas than are pending a *HandledCountError is
// returned and the pending list is left untouched; the stream should be
// closed with the error returned by its StreamError method.
// This includes any change of h while nothing is pending, so an answer that
// moves h backwards is always rejected.
func (m *Manager) HandleAnswer(h uint32) (int, error) {
	m.ackMu.Lock()
	defer m.ackMu.Unlock()

	m.out.Lock()
	if !m.enabled.Load() {
		m.out.Unlock()
		return 0, ErrNotEnabled
	}
	recs, err := m.releaseLocked(h)
	m.out.Unlock()
	if err != nil {
		return 0, err
	}
	m.notify(recs)
	return len(recs), nil
}

func (m *Manager) releaseLocked(h uint32) ([]Record, error) {
	n := Diff(h, m.out.acked)
	pending := m.out.pending.Len()
	switch {
	case n == 0:
		return nil, nil
	case uint64(n) > uint64(pending):
		m.log.WithFields(logrus.Fields{
			"h":       h,
			"acked":   m.out.acked,
			"pending": pending,
		}).Warn("sm: remote entity acknowledged more stanzas than were sent")
		return nil, &HandledCountError{H: h, SendCount: m.out.count}
	}
	recs, err := m.out.pending.ReleaseFirst(int(n))
	if err != nil {
		return nil, err
	}
	m.out.acked = h
	m.total.Add(uint64(len(recs)))
	return recs, nil
}

func (m *Manager) notify(recs []Record) {
	for _, rec := range recs {
		m.log.WithFields(logrus.Fields{
			"seq":  rec.Seq,
			"kind": rec.Kind().String(),
			"id":   rec.ID(),
		}).Debug("sm: stanza acknowledged")
		for _, f := range m.onAck {
			f(rec)
		}
	}
}

// readElement returns the tokens of the first element read from r, skipping
// any leading character data.
func readElement(r xml.TokenReader) ([]xml.Token, error) {
	var (
		toks  []xml.Token
		depth int
	)
	for {
		tok, err := r.Token()
		if tok != nil {
			switch tok.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				if depth == 0 {
					return nil, ErrUnexpectedElement
				}
				depth--
			}
			if len(toks) > 0 || depth > 0 {
				toks = append(toks, xml.CopyToken(tok))
			}
			if len(toks) > 0 && depth == 0 {
				return toks, nil
			}
		}
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, err
		}
	}
}
