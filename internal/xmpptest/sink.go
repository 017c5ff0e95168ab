// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpptest

import (
	"encoding/xml"
	"sync"
)

// Sink is an xmlstream.TokenWriter that records the tokens written to it.
// It stands in for the write half of a session.
// A Sink is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	toks    Tokens
	flushes int

	// If Err is set it is returned by EncodeToken and nothing is recorded.
	Err error
}

// EncodeToken satisfies the xmlstream.TokenWriter interface.
func (s *Sink) EncodeToken(t xml.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.toks = append(s.toks, xml.CopyToken(t))
	return nil
}

// Flush satisfies the xmlstream.Flusher interface.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// Flushes returns the number of times Flush has been called.
func (s *Sink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Tokens returns a copy of the recorded tokens.
func (s *Sink) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Tokens, len(s.toks))
	copy(out, s.toks)
	return out
}

// String encodes the recorded tokens.
// If they cannot be encoded the result is whatever was written before the
// error.
func (s *Sink) String() string {
	toks := s.Tokens()
	out, _ := Encode(&toks)
	return out
}

// Reset discards the recorded tokens.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toks = nil
	s.flushes = 0
}
