// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package attr_test

import (
	"encoding/xml"
	"strconv"
	"testing"

	"mellium.im/xmppsm/internal/attr"
)

var attrTests = [...]struct {
	attr  []xml.Attr
	local string
	out   string
	idx   int
}{
	0: {idx: -1},
	1: {idx: -1, local: "h"},
	2: {idx: -1, attr: []xml.Attr{}, local: "h"},
	3: {
		attr:  []xml.Attr{{Name: xml.Name{Local: "h"}, Value: "1"}},
		local: "h",
		out:   "1",
	},
	4: {
		attr: []xml.Attr{
			{Name: xml.Name{Local: "h"}, Value: "1"},
			{Name: xml.Name{Local: "h"}, Value: "2"},
		},
		local: "h",
		out:   "1",
	},
	5: {
		attr: []xml.Attr{
			{Name: xml.Name{Local: "previd"}, Value: "abc"},
			{Name: xml.Name{Local: "h"}, Value: "5"},
		},
		local: "h",
		out:   "5",
		idx:   1,
	},
}

func TestGet(t *testing.T) {
	for i, tc := range attrTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			idx, out := attr.Get(tc.attr, tc.local)
			if out != tc.out {
				t.Errorf("wrong output: want=%q, got=%q", tc.out, out)
			}
			if idx != tc.idx {
				t.Errorf("wrong index: want=%d, got=%d", tc.idx, idx)
			}
		})
	}
}

var uint32Tests = [...]struct {
	val   string
	out   uint32
	isErr bool
}{
	0: {val: "0"},
	1: {val: "4294967295", out: 0xFFFFFFFF},
	2: {val: "4294967296", isErr: true},
	3: {val: "-1", isErr: true},
	4: {val: "", isErr: true},
	5: {val: "12", out: 12},
}

func TestUint32(t *testing.T) {
	for i, tc := range uint32Tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			v, ok, err := attr.Uint32([]xml.Attr{{Name: xml.Name{Local: "h"}, Value: tc.val}}, "h")
			switch {
			case tc.isErr && err == nil:
				t.Fatalf("expected error parsing %q", tc.val)
			case !tc.isErr && err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Errorf("expected attribute to be found")
			}
			if v != tc.out {
				t.Errorf("wrong value: want=%d, got=%d", tc.out, v)
			}
		})
	}

	_, ok, err := attr.Uint32(nil, "h")
	if ok || err != nil {
		t.Errorf("missing attribute: want ok=false err=nil, got ok=%t err=%v", ok, err)
	}
}

func TestBool(t *testing.T) {
	for _, s := range []string{"true", "1"} {
		if !attr.Bool([]xml.Attr{{Name: xml.Name{Local: "resume"}, Value: s}}, "resume") {
			t.Errorf("expected %q to be true", s)
		}
	}
	for _, s := range []string{"false", "0", "yes", ""} {
		if attr.Bool([]xml.Attr{{Name: xml.Name{Local: "resume"}, Value: s}}, "resume") {
			t.Errorf("expected %q to be false", s)
		}
	}
}
