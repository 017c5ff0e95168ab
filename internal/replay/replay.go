// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package replay feeds a recorded stream through a stream management Manager.
//
// A transcript lists the top level elements of one stream in the order they
// were seen.
// Sent stanzas are tracked as if they had been written by the local entity
// and received elements are handled as if they had been read from the remote
// entity.
// The resulting report shows which stanzas were acknowledged and which would
// still be waiting for an acknowledgement.
package replay // import "mellium.im/xmppsm/internal/replay"

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/decl"
	"mellium.im/xmppsm/internal/streamloop"
	"mellium.im/xmppsm/metrics"
	"mellium.im/xmppsm/sm"
	"mellium.im/xmppsm/stream"
)

// Stanza identifies a tracked stanza in a report.
type Stanza struct {
	Seq  uint32
	Kind string
	ID   string
}

func stanzaOf(r sm.Record) Stanza {
	return Stanza{Seq: r.Seq, Kind: r.Kind().String(), ID: r.ID()}
}

func stanzasOf(recs []sm.Record) []Stanza {
	out := make([]Stanza, 0, len(recs))
	for _, r := range recs {
		out = append(out, stanzaOf(r))
	}
	return out
}

// Report is the state of the Manager after a transcript was replayed.
type Report struct {
	Stats sm.Stats

	// ID is the resumption ID of the stream, if any.
	ID string

	// Acked lists the stanzas acknowledged during the replay in the order they
	// were acknowledged.
	Acked []Stanza

	// Pending lists the stanzas that were never acknowledged.
	Pending []Stanza

	// Resend lists the stanzas that a resumption reported as lost.
	Resend []Stanza

	// Failed lists the <failed/> elements received in response to enable or
	// resume requests.
	Failed []sm.Failed

	// Output is the XML the local entity would have written: sent stanzas and
	// requests followed by the Manager's own answers and responses.
	Output string

	// Err is the error that ended the stream and Line the transcript line that
	// caused it.
	Err  error
	Line int
}

// StreamError returns the stream error that ended the stream, if any.
func (r Report) StreamError() (stream.Error, bool) {
	se := stream.Error{}
	if r.Err == nil {
		return se, false
	}
	ok := errors.As(r.Err, &se)
	return se, ok
}

// Option configures a replay.
type Option func(*config)

type config struct {
	log          logrus.FieldLogger
	requestEvery uint32
	reg          prometheus.Registerer
	namespace    string
}

// Logger sets the logger used by the replay and its Manager.
func Logger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

// RequestEvery makes the Manager request an acknowledgement after every n
// sent stanzas as if it were configured with sm.RequestEvery.
func RequestEvery(n uint32) Option {
	return func(c *config) {
		c.requestEvery = n
	}
}

// Metrics registers a collector for the Manager with reg.
func Metrics(reg prometheus.Registerer, namespace string) Option {
	return func(c *config) {
		c.reg = reg
		c.namespace = namespace
	}
}

// Run replays lines through a new Manager.
// Replaying stops at the first element that ends the stream; the error is
// recorded in the report and not returned.
// Malformed XML and other failures of the replay itself are returned as an
// error.
func Run(ctx context.Context, lines []Line, opts ...Option) (Report, error) {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.log = l
	}

	d := &driver{ctx: ctx, log: cfg.log}
	d.m = sm.New(
		sm.Logger(cfg.log),
		sm.RequestEvery(cfg.requestEvery),
		sm.OnAck(func(r sm.Record) {
			d.report.Acked = append(d.report.Acked, stanzaOf(r))
		}),
	)
	if cfg.reg != nil {
		if err := cfg.reg.Register(metrics.NewCollector(cfg.namespace, d.m)); err != nil {
			return Report{}, err
		}
	}

	var out strings.Builder
	d.out = xml.NewEncoder(&out)
	for _, line := range lines {
		stop, err := d.line(ctx, line)
		if err != nil {
			return Report{}, fmt.Errorf("line %d: %w", line.Num, err)
		}
		if stop {
			break
		}
	}
	if err := d.out.Flush(); err != nil {
		return Report{}, err
	}

	d.report.Stats = d.m.Stats()
	d.report.ID = d.m.ID()
	d.report.Pending = stanzasOf(d.m.Pending())
	d.report.Output = out.String()
	return d.report, nil
}

type driver struct {
	ctx    context.Context
	log    logrus.FieldLogger
	m      *sm.Manager
	out    *xml.Encoder
	report Report

	// lastReq is the local name of the last enable or resume request sent.
	lastReq string
}

// line replays a single element and reports whether the stream ended.
// XML declarations and stream headers are skipped and a closing stream tag
// ends the replay.
func (d *driver) line(ctx context.Context, l Line) (bool, error) {
	d.log.WithFields(logrus.Fields{
		"line": l.Num,
		"dir":  l.Dir.String(),
	}).Debug(l.XML)

	// Only the stream itself can be closed at the top level.
	if strings.HasPrefix(l.XML, "</") {
		return true, nil
	}
	r := decoder(l.XML)
	start, err := peek(r)
	switch {
	case err == io.ErrUnexpectedEOF:
		// Nothing but a declaration or a comment.
		return false, nil
	case err != nil:
		return false, err
	case decl.IsStreamHeader(start):
		return false, nil
	}
	r = xmlstream.MultiReader(xmlstream.Token(start), r)
	if l.Dir == Sent {
		return false, d.sent(start, r)
	}

	err = streamloop.Serve(ctx, r, d.out, d.m.Handler(sm.HandlerFunc(d.negotiate)))
	if err == nil {
		return false, nil
	}
	se := stream.Error{}
	if !errors.As(err, &se) {
		return false, err
	}
	d.log.WithFields(logrus.Fields{
		"line":  l.Num,
		"error": err,
	}).Warn("replay: stream ended")
	d.report.Err = err
	d.report.Line = l.Num
	return true, nil
}

// sent replays an element written by the local entity.
// Stanzas are sent through the Manager so that they are tracked.
// Answers and negotiation responses are skipped because the Manager writes
// its own in response to the received elements; enable and resume requests
// are remembered so that the response can be matched up.
func (d *driver) sent(start xml.StartElement, r xml.TokenReader) error {
	if start.Name.Space != sm.NS {
		return d.m.Send(d.out, r)
	}

	var err error
	switch start.Name.Local {
	case "enable", "resume":
		d.lastReq = start.Name.Local
		_, err = xmlstream.Copy(d.out, r)
		return err
	case "r":
		if d.m.Enabled() {
			if err = d.m.RequestAck(d.out); err != nil {
				return err
			}
			_, err = xmlstream.Copy(xmlstream.Discard(), r)
			return err
		}
		_, err = xmlstream.Copy(d.out, r)
		return err
	}
	_, err = xmlstream.Copy(xmlstream.Discard(), r)
	return err
}

// negotiate handles stream management negotiation elements received from the
// remote entity.
// Everything else is ignored.
func (d *driver) negotiate(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
	if start.Name.Space != sm.NS {
		return nil
	}
	// The request was already recorded as sent, so the Manager's copy is
	// discarded and only the response is read.
	rw := struct {
		xml.TokenReader
		xmlstream.TokenWriter
	}{
		TokenReader: xmlstream.MultiReader(xmlstream.Token(*start), t),
		TokenWriter: xmlstream.Discard(),
	}

	var err error
	switch start.Name.Local {
	case "enabled":
		_, err = d.m.Negotiate(d.ctx, rw, sm.Enable{})
	case "resumed":
		err = d.resume(rw)
	case "failed":
		if d.lastReq == "resume" && d.m.Enabled() {
			err = d.resume(rw)
			break
		}
		f := sm.Failed{}
		if err = decode(rw, &f); err == nil {
			err = f
		}
	case "enable":
		req := sm.Enable{}
		if err = decode(rw, &req); err == nil {
			_, err = d.m.Accept(t, req)
		}
	case "resume":
		req := sm.Resume{}
		if err = decode(rw, &req); err == nil {
			var rest []sm.Record
			rest, err = d.m.AcceptResume(t, req)
			d.report.Resend = append(d.report.Resend, stanzasOf(rest)...)
		}
	}

	f := sm.Failed{}
	if errors.As(err, &f) {
		d.log.WithField("condition", f.Condition).Info("replay: request failed")
		d.report.Failed = append(d.report.Failed, f)
		return nil
	}
	return err
}

func (d *driver) resume(rw xmlstream.TokenReadWriter) error {
	rest, err := d.m.Resume(d.ctx, rw, "")
	d.report.Resend = append(d.report.Resend, stanzasOf(rest)...)
	return err
}

// decoder returns a token reader for a single line of the transcript.
// Namespace declarations are dropped since the namespace is kept on each
// element name and would otherwise be written twice.
func decoder(s string) xml.TokenReader {
	return xmlstream.RemoveAttr(func(_ xml.StartElement, attr xml.Attr) bool {
		return (attr.Name.Space == "" && attr.Name.Local == "xmlns") || attr.Name.Space == "xmlns"
	})(decl.Skip(xml.NewDecoder(strings.NewReader(s))))
}

func decode(r xml.TokenReader, v interface{}) error {
	return xml.NewTokenDecoder(r).Decode(v)
}

// peek returns the first start element in r, skipping anything before it.
// If r ends before an element starts io.ErrUnexpectedEOF is returned.
func peek(r xml.TokenReader) (xml.StartElement, error) {
	for {
		tok, err := r.Token()
		if start, ok := tok.(xml.StartElement); ok {
			return start.Copy(), nil
		}
		if err == io.EOF {
			return xml.StartElement{}, io.ErrUnexpectedEOF
		}
		if err != nil {
			return xml.StartElement{}, err
		}
	}
}
