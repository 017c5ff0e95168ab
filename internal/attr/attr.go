// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains helpers for reading XML attributes off of start
// elements.
package attr // import "mellium.im/xmppsm/internal/attr"

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Get returns the index and value of the first attribute with the provided
// local name from a list of attributes.
// If no such attribute exists the index is -1 and the value is empty.
func Get(attr []xml.Attr, local string) (int, string) {
	for idx, a := range attr {
		if a.Name.Local == local {
			return idx, a.Value
		}
	}
	return -1, ""
}

// Uint32 parses the first attribute with the provided local name as an
// unsigned 32-bit decimal integer.
// If the attribute does not exist ok is false and err is nil.
func Uint32(attr []xml.Attr, local string) (v uint32, ok bool, err error) {
	idx, s := Get(attr, local)
	if idx == -1 {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, true, fmt.Errorf("attr: bad value for %q: %w", local, err)
	}
	return uint32(n), true, nil
}

// Bool reports whether the first attribute with the provided local name is
// set to one of the XML Schema boolean true values ("true" or "1").
func Bool(attr []xml.Attr, local string) bool {
	_, s := Get(attr, local)
	return s == "true" || s == "1"
}

// FormatUint32 returns an attribute with the decimal encoding of v.
func FormatUint32(local string, v uint32) xml.Attr {
	return xml.Attr{
		Name:  xml.Name{Local: local},
		Value: strconv.FormatUint(uint64(v), 10),
	}
}
