// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm_test

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"mellium.im/xmppsm/internal/xmpptest"
	"mellium.im/xmppsm/sm"
)

// conn reads canned input and records everything written to it.
type conn struct {
	xml.TokenReader
	*xmpptest.Sink
}

func newConn(in string) conn {
	return conn{
		TokenReader: xmpptest.Decoder(in),
		Sink:        &xmpptest.Sink{},
	}
}

func TestNegotiate(t *testing.T) {
	m := sm.New()
	c := newConn(` <enabled xmlns="urn:xmpp:sm:3" id="some-long-sm-id" resume="true" max="300"/>`)
	e, err := m.Negotiate(context.Background(), c, sm.Enable{Resume: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := c.String(); out != `<enable xmlns="urn:xmpp:sm:3" resume="true"></enable>` {
		t.Errorf("wrong request: %q", out)
	}
	if c.Flushes() != 1 {
		t.Errorf("expected request to be flushed once, got %d", c.Flushes())
	}
	want := sm.Enabled{ID: "some-long-sm-id", Resume: true, Max: 300}
	if e != want {
		t.Errorf("wrong response: want=%+v, got=%+v", want, e)
	}
	if !m.Enabled() {
		t.Errorf("manager should be enabled")
	}
	if id := m.ID(); id != "some-long-sm-id" {
		t.Errorf("wrong stream ID: %q", id)
	}
}

func TestNegotiateFailed(t *testing.T) {
	m := sm.New()
	c := newConn(`<failed xmlns="urn:xmpp:sm:3"><unexpected-request xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></failed>`)
	_, err := m.Negotiate(context.Background(), c, sm.Enable{})
	var f sm.Failed
	if !errors.As(err, &f) {
		t.Fatalf("wrong error: want=sm.Failed, got=%v", err)
	}
	if f.Condition != "unexpected-request" {
		t.Errorf("wrong condition: %q", f.Condition)
	}
	if m.Enabled() {
		t.Errorf("manager should not be enabled after failure")
	}
}

func TestNegotiateUnexpected(t *testing.T) {
	for _, in := range []string{
		`<features xmlns="http://etherx.jabber.org/streams"/>`,
		`<r xmlns="urn:xmpp:sm:3"/>`,
	} {
		m := sm.New()
		_, err := m.Negotiate(context.Background(), newConn(in), sm.Enable{})
		if !errors.Is(err, sm.ErrUnexpectedElement) {
			t.Errorf("wrong error for %s: want=%v, got=%v", in, sm.ErrUnexpectedElement, err)
		}
	}

	m := sm.New()
	if _, err := m.Negotiate(context.Background(), newConn(``), sm.Enable{}); err != io.ErrUnexpectedEOF {
		t.Errorf("wrong error for empty input: want=%v, got=%v", io.ErrUnexpectedEOF, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Negotiate(ctx, newConn(`<enabled xmlns="urn:xmpp:sm:3"/>`), sm.Enable{}); err != context.Canceled {
		t.Errorf("wrong error for canceled context: want=%v, got=%v", context.Canceled, err)
	}
}

func TestAccept(t *testing.T) {
	m := sm.New()
	sink := &xmpptest.Sink{}
	e, err := m.Accept(sink, sm.Enable{Resume: true, Max: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = uuid.Parse(e.ID); err != nil {
		t.Errorf("resumption ID is not a UUID: %q", e.ID)
	}
	if !e.Resume || e.Max != 60 {
		t.Errorf("wrong response: %+v", e)
	}
	want := `<enabled xmlns="urn:xmpp:sm:3" id="` + e.ID + `" resume="true" max="60"></enabled>`
	if out := sink.String(); out != want {
		t.Errorf("wrong output:\nwant=%s,\n got=%s", want, out)
	}
	if !m.Enabled() || m.ID() != e.ID {
		t.Errorf("manager not enabled with the new ID")
	}

	m = sm.New()
	sink = &xmpptest.Sink{}
	e, err = m.Accept(sink, sm.Enable{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "" {
		t.Errorf("stream should not be resumable, got ID %q", e.ID)
	}
	if out := sink.String(); out != `<enabled xmlns="urn:xmpp:sm:3"></enabled>` {
		t.Errorf("wrong output: %q", out)
	}

	m = sm.New()
	errWrite := errors.New("write failed")
	if _, err = m.Accept(&xmpptest.Sink{Err: errWrite}, sm.Enable{}); err != errWrite {
		t.Errorf("wrong error: want=%v, got=%v", errWrite, err)
	}
	if m.Enabled() {
		t.Errorf("manager should not be enabled when the response was not written")
	}
}

func TestNegotiateAlreadyEnabled(t *testing.T) {
	m := sm.New()
	m.Enable()
	sendAll(t, m, &xmpptest.Sink{}, "m1")
	c := newConn(`<enabled xmlns="urn:xmpp:sm:3"/>`)
	if _, err := m.Negotiate(context.Background(), c, sm.Enable{}); err != sm.ErrAlreadyEnabled {
		t.Fatalf("wrong error: want=%v, got=%v", sm.ErrAlreadyEnabled, err)
	}
	if out := c.String(); out != "" {
		t.Errorf("nothing should be written, got %q", out)
	}
	if got := ids(m.Pending()); !equalIDs(got, []string{"m1"}) {
		t.Errorf("pending stanzas should be kept, got %v", got)
	}
}

func TestAcceptAlreadyEnabled(t *testing.T) {
	m := sm.New()
	e, err := m.Accept(&xmpptest.Sink{}, sm.Enable{Resume: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sendAll(t, m, &xmpptest.Sink{}, "m1", "m2")

	sink := &xmpptest.Sink{}
	_, err = m.Accept(sink, sm.Enable{})
	if !errors.Is(err, sm.ErrAlreadyEnabled) {
		t.Errorf("wrong error: want=%v, got=%v", sm.ErrAlreadyEnabled, err)
	}
	f := sm.Failed{}
	if !errors.As(err, &f) || f.Condition != "unexpected-request" {
		t.Errorf("error should carry the failure that was sent, got %v", err)
	}
	const want = `<failed xmlns="urn:xmpp:sm:3"><unexpected-request xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"></unexpected-request></failed>`
	if out := sink.String(); out != want {
		t.Errorf("wrong output:\nwant=%s,\n got=%s", want, out)
	}
	if got := ids(m.Pending()); !equalIDs(got, []string{"m1", "m2"}) {
		t.Errorf("pending stanzas should be kept, got %v", got)
	}
	if m.ID() != e.ID {
		t.Errorf("resumption ID changed: want=%q, got=%q", e.ID, m.ID())
	}
}

// resumable returns an enabled manager with three unacknowledged stanzas and
// one handled inbound stanza.
func resumable(t *testing.T, acks *ackRecorder) *sm.Manager {
	t.Helper()
	m := sm.New(sm.OnAck(acks.record))
	if _, err := m.Accept(&xmpptest.Sink{}, sm.Enable{Resume: true}); err != nil {
		t.Fatalf("error enabling: %v", err)
	}
	sendAll(t, m, &xmpptest.Sink{}, "a", "b", "c")
	m.IncInbound()
	return m
}

func TestResume(t *testing.T) {
	acks := &ackRecorder{}
	m := resumable(t, acks)
	id := m.ID()

	c := newConn(`<resumed xmlns="urn:xmpp:sm:3" h="1" previd="` + id + `"/>`)
	rest, err := m.Resume(context.Background(), c, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `<resume xmlns="urn:xmpp:sm:3" h="1" previd="` + id + `"></resume>`; c.String() != want {
		t.Errorf("wrong request:\nwant=%s,\n got=%s", want, c.String())
	}
	if got := acks.IDs(); !equalIDs(got, []string{"a"}) {
		t.Errorf("wrong stanzas acknowledged: %v", got)
	}
	if got := ids(rest); !equalIDs(got, []string{"b", "c"}) {
		t.Errorf("wrong stanzas to resend: %v", got)
	}
	if n := len(m.Pending()); n != 0 {
		t.Errorf("resend list should have been removed from the pending list, got %d", n)
	}
	if out := m.Outbound(); out != 1 {
		t.Errorf("outbound counter should be rewound to h: want=1, got=%d", out)
	}
	if in := m.Inbound(); in != 1 {
		t.Errorf("inbound counter should be kept: want=1, got=%d", in)
	}

	// Resending continues the sequence from h.
	for _, r := range rest {
		if err = m.Send(&xmpptest.Sink{}, r.TokenReader()); err != nil {
			t.Fatalf("error resending: %v", err)
		}
	}
	if got := seqs(m.Pending()); !equalSeqs(got, []uint32{1, 2}) {
		t.Errorf("wrong sequence numbers after resend: %v", got)
	}
}

func TestResumeFailed(t *testing.T) {
	acks := &ackRecorder{}
	m := resumable(t, acks)
	c := newConn(`<failed xmlns="urn:xmpp:sm:3" h="2"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"/></failed>`)
	_, err := m.Resume(context.Background(), c, "other")
	var f sm.Failed
	if !errors.As(err, &f) || f.Condition != "item-not-found" {
		t.Fatalf("wrong error: %v", err)
	}
	if want := `<resume xmlns="urn:xmpp:sm:3" h="1" previd="other"></resume>`; c.String() != want {
		t.Errorf("wrong request:\nwant=%s,\n got=%s", want, c.String())
	}
	if got := acks.IDs(); !equalIDs(got, []string{"a", "b"}) {
		t.Errorf("acknowledgement on failure not processed: %v", got)
	}
	if got := ids(m.Close()); !equalIDs(got, []string{"c"}) {
		t.Errorf("wrong unacknowledged stanzas: %v", got)
	}
}

func TestResumeDisabled(t *testing.T) {
	m := sm.New()
	c := newConn(``)
	if _, err := m.Resume(context.Background(), c, "id"); !errors.Is(err, sm.ErrNotEnabled) {
		t.Errorf("wrong error: want=%v, got=%v", sm.ErrNotEnabled, err)
	}
	if out := c.String(); out != "" {
		t.Errorf("nothing should be written, got %q", out)
	}
}

func TestAcceptResume(t *testing.T) {
	acks := &ackRecorder{}
	m := resumable(t, acks)
	id := m.ID()

	sink := &xmpptest.Sink{}
	_, err := m.AcceptResume(sink, sm.Resume{H: 0, PrevID: "wrong"})
	var f sm.Failed
	if !errors.As(err, &f) || f.Condition != "item-not-found" {
		t.Fatalf("wrong error for unknown ID: %v", err)
	}
	const failed = `<failed xmlns="urn:xmpp:sm:3"><item-not-found xmlns="urn:ietf:params:xml:ns:xmpp-stanzas"></item-not-found></failed>`
	if out := sink.String(); out != failed {
		t.Errorf("wrong output:\nwant=%s,\n got=%s", failed, out)
	}

	sink.Reset()
	rest, err := m.AcceptResume(sink, sm.Resume{H: 3, PrevID: id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := `<resumed xmlns="urn:xmpp:sm:3" h="1" previd="` + id + `"></resumed>`; sink.String() != want {
		t.Errorf("wrong output:\nwant=%s,\n got=%s", want, sink.String())
	}
	if len(rest) != 0 {
		t.Errorf("nothing should need resending, got %v", ids(rest))
	}
	if got := acks.IDs(); !equalIDs(got, []string{"a", "b", "c"}) {
		t.Errorf("wrong stanzas acknowledged: %v", got)
	}
}

func TestResumedOverAck(t *testing.T) {
	m := resumable(t, &ackRecorder{})
	_, err := m.Resumed(4)
	var hcErr *sm.HandledCountError
	if !errors.As(err, &hcErr) {
		t.Fatalf("wrong error: %v", err)
	}
	if n := len(m.Pending()); n != 3 {
		t.Errorf("pending list should be untouched, got %d", n)
	}
}
