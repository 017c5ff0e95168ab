// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"encoding/xml"
	"errors"
	"reflect"
	"strconv"
	"testing"
)

// EncodingTestCase marshals Value and compares the output to XML, then
// unmarshals XML into a new zero value of Value's type and compares it to
// Value.
// Value must be a pointer.
// NoMarshal and NoUnmarshal skip either half for payloads that do not survive
// a round trip.
// If Err is set, it must match the error returned by each half that runs and
// the unmarshaled value is not compared.
type EncodingTestCase struct {
	Value       interface{}
	XML         string
	Err         error
	NoMarshal   bool
	NoUnmarshal bool
}

// RunEncodingTests runs each test case as a subtest.
func RunEncodingTests(t *testing.T, testCases []EncodingTestCase) {
	t.Helper()
	for i, tc := range testCases {
		tc := tc
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if !tc.NoMarshal {
				t.Run("marshal", tc.testMarshal)
			}
			if !tc.NoUnmarshal {
				t.Run("unmarshal", tc.testUnmarshal)
			}
		})
	}
}

func (tc EncodingTestCase) testMarshal(t *testing.T) {
	out, err := xml.Marshal(tc.Value)
	if !errors.Is(err, tc.Err) {
		t.Fatalf("wrong error: want=%v, got=%v", tc.Err, err)
	}
	if string(out) != tc.XML {
		t.Fatalf("wrong output:\nwant=%s,\n got=%s", tc.XML, out)
	}
}

func (tc EncodingTestCase) testUnmarshal(t *testing.T) {
	v := reflect.New(reflect.TypeOf(tc.Value).Elem()).Interface()
	err := xml.Unmarshal([]byte(tc.XML), v)
	switch {
	case !errors.Is(err, tc.Err):
		t.Fatalf("wrong error: want=%v, got=%v", tc.Err, err)
	case tc.Err != nil:
		return
	}
	if !reflect.DeepEqual(v, tc.Value) {
		t.Fatalf("wrong value:\nwant=%+v,\n got=%+v", tc.Value, v)
	}
}
