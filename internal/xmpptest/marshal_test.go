// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest_test

import (
	"encoding/xml"
	"errors"
	"testing"

	"mellium.im/xmppsm/internal/xmpptest"
)

var errCount = errors.New("count must not be empty")

// count is a minimal element with an unmarshaler that can fail.
type count struct {
	XMLName xml.Name `xml:"a"`
	H       string   `xml:"h,attr"`
}

func (c *count) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain count
	p := plain{}
	if err := d.DecodeElement(&p, &start); err != nil {
		return err
	}
	if p.H == "" {
		return errCount
	}
	*c = count(p)
	return nil
}

var marshalTestCases = []xmpptest.EncodingTestCase{
	0: {
		Value: &count{XMLName: xml.Name{Local: "a"}, H: "1"},
		XML:   `<a h="1"></a>`,
	},
	1: {
		NoMarshal: true,
		Value:     &count{},
		XML:       `<a/>`,
		Err:       errCount,
	},
	2: {
		NoUnmarshal: true,
		Value: &struct {
			XMLName xml.Name `xml:"r"`
			N       int      `xml:",chardata"`
		}{N: 0},
		XML: `<r>0</r>`,
	},
}

func TestEncode(t *testing.T) {
	xmpptest.RunEncodingTests(t, marshalTestCases)
}
