// Package charstream feeds a string to automata one character per tick and
// provides a small symbol set for recognizers over it.
//
// Tick n exposes the n-th character; once the string is exhausted every
// further tick exposes EOF.
package charstream

import (
	"fmt"
	"strconv"
)

// Input is the context of one tick.
type Input struct {
	Char rune
	Pos  int
	EOF  bool
}

func (in Input) String() string {
	if in.EOF {
		return "EOF"
	}
	return strconv.QuoteRune(in.Char)
}

// Stream is a TickAware context provider over a string.
type Stream struct {
	runes []rune
	pos   int
}

// New creates a stream positioned before the first character.
func New(s string) *Stream {
	return &Stream{runes: []rune(s), pos: -1}
}

// BeginTick moves to the character of tick.
func (s *Stream) BeginTick(tick int64) {
	s.pos = int(tick) - 1
}

// Context returns the current character. Before the first tick it is the
// first character, so that initial states see what tick 1 will consume.
func (s *Stream) Context() Input {
	pos := s.pos
	if pos < 0 {
		pos = 0
	}
	if pos >= len(s.runes) {
		return Input{Pos: pos, EOF: true}
	}
	return Input{Char: s.runes[pos], Pos: pos}
}

// Len returns the number of characters; the number of ticks after which
// the stream reports EOF.
func (s *Stream) Len() int { return len(s.runes) }

// Exhausted reports whether the current tick is past the end.
func (s *Stream) Exhausted() bool { return s.pos >= len(s.runes) }

// ParseChar reads the attribute of a char symbol: a single character or a
// Go rune literal such as '\n'.
func ParseChar(attr string) (rune, error) {
	r := []rune(attr)
	if len(r) == 1 {
		return r[0], nil
	}
	if v, _, tail, err := strconv.UnquoteChar(unquoteRune(attr), '\''); err == nil && tail == "" {
		return v, nil
	}
	return 0, fmt.Errorf("want one character, got %q", attr)
}

func unquoteRune(attr string) string {
	if len(attr) >= 2 && attr[0] == '\'' && attr[len(attr)-1] == '\'' {
		return attr[1 : len(attr)-1]
	}
	return attr
}
