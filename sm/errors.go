// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"encoding/xml"
	"errors"
	"fmt"

	"mellium.im/xmppsm/internal/attr"
	"mellium.im/xmppsm/stream"
)

// Errors returned by the Manager.
var (
	ErrNotEnabled        = errors.New("sm: stream management is not enabled")
	ErrAlreadyEnabled    = errors.New("sm: stream management is already enabled")
	ErrNotStanza         = errors.New("sm: element is not a stanza")
	ErrUnexpectedElement = errors.New("sm: unexpected element")
)

// HandledCountError is returned when the remote entity acknowledges more
// stanzas than were sent and not yet acknowledged.
// This includes answers that move the handled count backwards, since the
// difference wraps around to a number larger than anything pending.
//
// It unwraps to an undefined-condition stream error carrying the
// <handled-count-too-high/> condition, which should be sent before the stream
// is closed.
type HandledCountError struct {
	// H is the count reported by the remote entity.
	H uint32

	// SendCount is the local outbound counter at the time of the answer.
	SendCount uint32
}

// Error satisfies the error interface.
func (e *HandledCountError) Error() string {
	return fmt.Sprintf("sm: handled count %d too high for send count %d", e.H, e.SendCount)
}

// StreamError returns the stream error to send to the remote entity.
func (e *HandledCountError) StreamError() stream.Error {
	return stream.UndefinedCondition.ApplicationError(xml.StartElement{
		Name: xml.Name{Space: NS, Local: "handled-count-too-high"},
		Attr: []xml.Attr{
			attr.FormatUint32("h", e.H),
			attr.FormatUint32("send-count", e.SendCount),
		},
	})
}

// Unwrap returns the stream error so that the error can be matched with
// errors.Is and errors.As.
func (e *HandledCountError) Unwrap() error {
	return e.StreamError()
}
