// Copyright 2015 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"mellium.im/xmppsm/internal/iter"
	"mellium.im/xmppsm/internal/marshal"
)

// A list of stream errors defined in RFC 6120 §4.9.3
var (
	// BadFormat is used when the entity has sent XML that cannot be processed.
	BadFormat = Error{Err: "bad-format"}

	// BadNamespacePrefix is sent when an entity has sent a namespace prefix that
	// is unsupported, or has sent no namespace prefix on an element that needs
	// one.
	BadNamespacePrefix = Error{Err: "bad-namespace-prefix"}

	// Conflict is sent when the server is closing the existing stream for this
	// entity because a new stream has been initiated that conflicts with it.
	Conflict = Error{Err: "conflict"}

	// ConnectionTimeout is sent when one party believes the other has
	// permanently lost the ability to communicate over the stream.
	ConnectionTimeout = Error{Err: "connection-timeout"}

	// HostGone is sent when the 'to' address of the stream header is no longer
	// serviced by the receiving entity.
	HostGone = Error{Err: "host-gone"}

	// HostUnknown is sent when the 'to' address of the stream header is not
	// serviced by the receiving entity.
	HostUnknown = Error{Err: "host-unknown"}

	// ImproperAddressing is used when a stanza sent between two servers lacks a
	// valid 'to' or 'from' attribute.
	ImproperAddressing = Error{Err: "improper-addressing"}

	// InternalServerError is sent when a misconfiguration or other internal
	// error prevents the server from servicing the stream.
	InternalServerError = Error{Err: "internal-server-error"}

	// InvalidFrom is sent when a 'from' attribute does not match an authorized
	// address.
	InvalidFrom = Error{Err: "invalid-from"}

	// InvalidNamespace is sent when the stream or content namespace is not
	// supported.
	InvalidNamespace = Error{Err: "invalid-namespace"}

	// InvalidXML may be sent when the entity has sent invalid XML to a server
	// that performs validation.
	InvalidXML = Error{Err: "invalid-xml"}

	// NotAuthorized is sent when the entity has sent data before the stream was
	// authenticated or is otherwise not authorized to perform an action.
	NotAuthorized = Error{Err: "not-authorized"}

	// NotWellFormed is sent when XML violates the well-formedness rules of XML
	// or XML namespaces.
	NotWellFormed = Error{Err: "not-well-formed"}

	// PolicyViolation is sent when the entity violated a local service policy.
	PolicyViolation = Error{Err: "policy-violation"}

	// RemoteConnectionFailed is sent when the server cannot connect to a remote
	// entity needed for authentication or authorization.
	RemoteConnectionFailed = Error{Err: "remote-connection-failed"}

	// Reset is sent when the server is closing the stream because it has new
	// features to offer or the security context has expired.
	Reset = Error{Err: "reset"}

	// ResourceConstraint is sent when the server lacks the resources to service
	// the stream.
	ResourceConstraint = Error{Err: "resource-constraint"}

	// RestrictedXML is sent when the entity used restricted XML features such as
	// comments, processing instructions, or DTD subsets.
	RestrictedXML = Error{Err: "restricted-xml"}

	// SystemShutdown is sent when the server is shutting down.
	SystemShutdown = Error{Err: "system-shutdown"}

	// UndefinedCondition is sent when no other condition applies.
	// It should be combined with an application-specific condition, see
	// ApplicationError.
	UndefinedCondition = Error{Err: "undefined-condition"}

	// UnsupportedEncoding is sent when the stream is not encoded as UTF-8.
	UnsupportedEncoding = Error{Err: "unsupported-encoding"}

	// UnsupportedFeature is sent when a mandatory-to-negotiate feature is not
	// supported.
	UnsupportedFeature = Error{Err: "unsupported-feature"}

	// UnsupportedStanzaType is sent when a first-level child of the stream is
	// not understood.
	UnsupportedStanzaType = Error{Err: "unsupported-stanza-type"}

	// UnsupportedVersion is sent when the stream version is not supported.
	UnsupportedVersion = Error{Err: "unsupported-version"}
)

// A Error represents an unrecoverable stream-level error.
// It may carry human readable text and an application-specific condition
// element.
type Error struct {
	Err  string
	Text string

	// App is the start element of an application-specific condition.
	// It is encoded as an empty element.
	// The zero value means no application condition is present.
	App xml.StartElement
}

// ApplicationError returns a copy of the error that carries the
// application-specific condition app.
func (s Error) ApplicationError(app xml.StartElement) Error {
	s.App = app
	return s
}

// Error satisfies the builtin error interface and returns the name of the
// condition followed by the text, if any.
// For instance, given the error:
//
//     <stream:error>
//       <restricted-xml xmlns="urn:ietf:params:xml:ns:xmpp-streams"/>
//     </stream:error>
//
// Error() would return "restricted-xml".
func (s Error) Error() string {
	if s.Text == "" {
		return s.Err
	}
	return s.Err + ": " + s.Text
}

// Is will be used by errors.Is when comparing errors.
// Two stream errors match if they have the same condition.
// A target with an empty condition matches any stream error.
func (s Error) Is(err error) bool {
	var se Error
	switch e := err.(type) {
	case Error:
		se = e
	case *Error:
		if e == nil {
			return false
		}
		se = *e
	default:
		return false
	}
	return se.Err == "" || se.Err == s.Err
}

// UnmarshalXML satisfies the xml package's Unmarshaler interface and allows
// stream errors to be correctly unmarshaled from XML.
func (s *Error) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	*s = Error{}
	children := iter.New(d)
	for children.Next() {
		child, r := children.Current()
		switch {
		case child.Name.Space == ErrorNS && child.Name.Local == "text":
			err := xml.NewTokenDecoder(xmlstream.MultiReader(xmlstream.Token(*child), r)).Decode(&s.Text)
			if err != nil {
				return err
			}
		case child.Name.Space == ErrorNS:
			s.Err = child.Name.Local
		default:
			s.App = xml.StartElement{Name: child.Name, Attr: removeNSAttr(child.Attr)}
		}
	}
	if err := children.Err(); err != nil {
		return err
	}
	return children.Close()
}

// removeNSAttr drops namespace declarations left on a decoded start element so
// that it can be re-encoded without duplicating the xmlns attribute.
func removeNSAttr(attrs []xml.Attr) []xml.Attr {
	var out []xml.Attr
	for _, a := range attrs {
		if (a.Name.Space == "" && a.Name.Local == "xmlns") || a.Name.Space == "xmlns" {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MarshalXML satisfies the xml package's Marshaler interface and allows
// stream errors to be correctly marshaled back into XML.
func (s Error) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return marshal.EncodeXML(e, s)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (s Error) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, s.TokenReader())
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (s Error) TokenReader() xml.TokenReader {
	inner := []xml.TokenReader{
		xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Local: s.Err, Space: ErrorNS}}),
	}
	if s.Text != "" {
		inner = append(inner, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(s.Text)),
			xml.StartElement{Name: xml.Name{Local: "text", Space: ErrorNS}},
		))
	}
	if s.App.Name.Local != "" {
		inner = append(inner, xmlstream.Wrap(nil, s.App.Copy()))
	}
	return xmlstream.Wrap(
		xmlstream.MultiReader(inner...),
		xml.StartElement{Name: xml.Name{Local: "error", Space: NS}},
	)
}
