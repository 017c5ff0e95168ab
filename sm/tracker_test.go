// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm_test

import (
	"errors"
	"testing"

	"mellium.im/xmppsm/sm"
)

func seqs(recs []sm.Record) []uint32 {
	out := make([]uint32, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Seq)
	}
	return out
}

func equalSeqs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTrackerFIFO(t *testing.T) {
	tr := &sm.Tracker{}
	for i := uint32(0); i < 5; i++ {
		tr.Add(sm.Record{Seq: i})
	}
	if n := tr.Len(); n != 5 {
		t.Fatalf("wrong length: want=5, got=%d", n)
	}

	recs, err := tr.ReleaseFirst(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := seqs(recs); !equalSeqs(s, []uint32{0, 1}) {
		t.Errorf("wrong records released: %v", s)
	}
	if s := seqs(tr.Pending()); !equalSeqs(s, []uint32{2, 3, 4}) {
		t.Errorf("wrong records pending: %v", s)
	}

	recs, err = tr.ReleaseFirst(0)
	if err != nil || len(recs) != 0 {
		t.Errorf("releasing nothing: want no records and no error, got %v, %v", recs, err)
	}
}

func TestTrackerReleaseTooMany(t *testing.T) {
	tr := &sm.Tracker{}
	tr.Add(sm.Record{Seq: 7})
	_, err := tr.ReleaseFirst(2)
	if !errors.Is(err, sm.ErrReleaseTooMany) {
		t.Fatalf("wrong error: want=%v, got=%v", sm.ErrReleaseTooMany, err)
	}
	_, err = tr.ReleaseFirst(-1)
	if !errors.Is(err, sm.ErrReleaseTooMany) {
		t.Fatalf("wrong error for negative count: want=%v, got=%v", sm.ErrReleaseTooMany, err)
	}
	if n := tr.Len(); n != 1 {
		t.Errorf("failed release should not modify the tracker, got length %d", n)
	}
}

func TestTrackerPendingIsCopy(t *testing.T) {
	tr := &sm.Tracker{}
	tr.Add(sm.Record{Seq: 1})
	p := tr.Pending()
	p[0].Seq = 100
	if s := seqs(tr.Pending()); !equalSeqs(s, []uint32{1}) {
		t.Errorf("modifying the snapshot changed the tracker: %v", s)
	}
}

func TestTrackerDrain(t *testing.T) {
	tr := &sm.Tracker{}
	if recs := tr.Drain(); len(recs) != 0 {
		t.Errorf("expected empty drain, got %v", recs)
	}
	tr.Add(sm.Record{Seq: 1})
	tr.Add(sm.Record{Seq: 2})
	if s := seqs(tr.Drain()); !equalSeqs(s, []uint32{1, 2}) {
		t.Errorf("wrong drained records: %v", s)
	}
	if n := tr.Len(); n != 0 {
		t.Errorf("expected drained tracker to be empty, got %d", n)
	}
}
