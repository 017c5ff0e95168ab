// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"encoding/xml"
	"errors"
	"fmt"

	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/attr"
	"mellium.im/xmppsm/internal/iter"
	"mellium.im/xmppsm/internal/marshal"
	"mellium.im/xmppsm/internal/ns"
)

// ErrMissingCount is returned when unmarshaling an element that requires an
// 'h' attribute that is not present.
var ErrMissingCount = errors.New("sm: missing h attribute")

// Feature is the <sm/> element advertised in the stream features list when
// stream management is available.
type Feature struct{}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (Feature) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NS, Local: "sm"}})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (f Feature) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, f.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (f Feature) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, f)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (f *Feature) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	return d.Skip()
}

// Enable is sent by the initiating entity to turn on stream management.
type Enable struct {
	// Resume requests that the stream be resumable.
	Resume bool

	// Max is the preferred maximum resumption time in seconds.
	// Zero means no preference.
	Max uint32
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (e Enable) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NS, Local: "enable"}}
	if e.Resume {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "resume"}, Value: "true"})
	}
	if e.Max > 0 {
		start.Attr = append(start.Attr, attr.FormatUint32("max", e.Max))
	}
	return xmlstream.Wrap(nil, start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (e Enable) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (e Enable) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(enc, e)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (e *Enable) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	max, _, err := attr.Uint32(start.Attr, "max")
	if err != nil {
		return err
	}
	e.Resume = attr.Bool(start.Attr, "resume")
	e.Max = max
	return d.Skip()
}

// Enabled is sent by the receiving entity when stream management has been
// turned on.
type Enabled struct {
	// ID identifies the stream for later resumption.
	ID string

	// Resume is true if the stream may be resumed.
	Resume bool

	// Max is the maximum resumption time in seconds, if any.
	Max uint32

	// Location is the preferred address to reconnect to when resuming.
	Location string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (e Enabled) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NS, Local: "enabled"}}
	if e.ID != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: e.ID})
	}
	if e.Resume {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "resume"}, Value: "true"})
	}
	if e.Max > 0 {
		start.Attr = append(start.Attr, attr.FormatUint32("max", e.Max))
	}
	if e.Location != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "location"}, Value: e.Location})
	}
	return xmlstream.Wrap(nil, start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (e Enabled) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (e Enabled) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(enc, e)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (e *Enabled) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	max, _, err := attr.Uint32(start.Attr, "max")
	if err != nil {
		return err
	}
	_, e.ID = attr.Get(start.Attr, "id")
	_, e.Location = attr.Get(start.Attr, "location")
	e.Resume = attr.Bool(start.Attr, "resume")
	e.Max = max
	return d.Skip()
}

// Failed is sent by the receiving entity when enabling or resuming stream
// management was not possible.
// It is also returned as an error by the negotiation functions.
type Failed struct {
	// H is the number of stanzas the receiving entity handled on the old stream.
	// It is only meaningful if HasH is set.
	H    uint32
	HasH bool

	// Condition is the local name of a stanza error condition such as
	// "unexpected-request" or "item-not-found".
	Condition string
}

// Error satisfies the error interface.
func (f Failed) Error() string {
	if f.Condition == "" {
		return "sm: request failed"
	}
	return "sm: request failed: " + f.Condition
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (f Failed) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NS, Local: "failed"}}
	if f.HasH {
		start.Attr = append(start.Attr, attr.FormatUint32("h", f.H))
	}
	var inner xml.TokenReader
	if f.Condition != "" {
		inner = xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: ns.Stanza, Local: f.Condition}})
	}
	return xmlstream.Wrap(inner, start)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (f Failed) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, f.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (f Failed) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, f)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (f *Failed) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	h, ok, err := attr.Uint32(start.Attr, "h")
	if err != nil {
		return err
	}
	*f = Failed{H: h, HasH: ok}
	children := iter.New(d)
	for children.Next() {
		child, _ := children.Current()
		if child.Name.Space == ns.Stanza && f.Condition == "" {
			f.Condition = child.Name.Local
		}
	}
	if err = children.Err(); err != nil {
		return err
	}
	return children.Close()
}

// Request asks the other entity for the number of stanzas it has handled.
type Request struct{}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (Request) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NS, Local: "r"}})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (r Request) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (r Request) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, r)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (r *Request) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	return d.Skip()
}

// Answer reports the number of stanzas handled by the sender since stream
// management was enabled, modulo 2^32.
type Answer struct {
	H uint32
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (a Answer) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "a"},
		Attr: []xml.Attr{attr.FormatUint32("h", a.H)},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (a Answer) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, a.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (a Answer) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, a)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (a *Answer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	h, err := requireH(start)
	if err != nil {
		return err
	}
	a.H = h
	return d.Skip()
}

// Resume asks the receiving entity to resume a previous stream.
type Resume struct {
	// H is the number of stanzas the initiating entity handled on the old
	// stream.
	H uint32

	// PrevID is the ID from the Enabled element of the old stream.
	PrevID string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (r Resume) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "resume"},
		Attr: []xml.Attr{
			attr.FormatUint32("h", r.H),
			{Name: xml.Name{Local: "previd"}, Value: r.PrevID},
		},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (r Resume) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (r Resume) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, r)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (r *Resume) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	h, err := requireH(start)
	if err != nil {
		return err
	}
	r.H = h
	_, r.PrevID = attr.Get(start.Attr, "previd")
	return d.Skip()
}

// Resumed is sent by the receiving entity when a stream was resumed.
type Resumed struct {
	// H is the number of stanzas the receiving entity handled on the old
	// stream.
	H uint32

	// PrevID is the ID of the resumed stream.
	PrevID string
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (r Resumed) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "resumed"},
		Attr: []xml.Attr{
			attr.FormatUint32("h", r.H),
			{Name: xml.Name{Local: "previd"}, Value: r.PrevID},
		},
	})
}

// WriteXML satisfies the xmlstream.WriterTo interface.
func (r Resumed) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

// MarshalXML satisfies the xml.Marshaler interface.
func (r Resumed) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, r)
}

// UnmarshalXML satisfies the xml.Unmarshaler interface.
func (r *Resumed) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	h, err := requireH(start)
	if err != nil {
		return err
	}
	r.H = h
	_, r.PrevID = attr.Get(start.Attr, "previd")
	return d.Skip()
}

func requireH(start xml.StartElement) (uint32, error) {
	h, ok, err := attr.Uint32(start.Attr, "h")
	switch {
	case err != nil:
		return 0, err
	case !ok:
		return 0, fmt.Errorf("%w on <%s/>", ErrMissingCount, start.Name.Local)
	}
	return h, nil
}
