// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadLine is returned when a transcript line has no direction marker.
var ErrBadLine = errors.New("replay: line must start with '>' or '<'")

// Direction is the direction an element travelled on the recorded stream.
type Direction int

const (
	// Sent elements were written by the local entity.
	Sent Direction = iota

	// Received elements were read from the remote entity.
	Received
)

func (d Direction) String() string {
	if d == Received {
		return "received"
	}
	return "sent"
}

// Line is a single recorded element.
type Line struct {
	// Num is the line number in the transcript, starting at 1.
	Num int
	Dir Direction
	XML string
}

// Parse reads a transcript.
// Each non-blank line that does not start with '#' must start with '>' (sent)
// or '<' (received) followed by a space and a complete XML element.
func Parse(r io.Reader) ([]Line, error) {
	var lines []Line
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	num := 0
	for s.Scan() {
		num++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var dir Direction
		switch {
		case strings.HasPrefix(text, "> "):
			dir = Sent
		case strings.HasPrefix(text, "< "):
			dir = Received
		default:
			return nil, fmt.Errorf("line %d: %w", num, ErrBadLine)
		}
		lines = append(lines, Line{
			Num: num,
			Dir: dir,
			XML: strings.TrimSpace(text[2:]),
		})
	}
	return lines, s.Err()
}
