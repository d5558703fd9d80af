package command

import (
	"strconv"
	"time"
	"unicode"
)

type scanner struct {
	in  []rune
	pos int
}

func (s *scanner) peek() (rune, bool) {
	if s.pos >= len(s.in) {
		return 0, false
	}
	return s.in[s.pos], true
}

func (s *scanner) fail(reason string) *ParseError {
	return s.failAt(s.pos, reason)
}

func (s *scanner) failAt(pos int, reason string) *ParseError {
	return &ParseError{Pos: pos, Reason: reason}
}

// try runs fn and rewinds the scanner when fn reports no match.
func (s *scanner) try(fn func() bool) {
	save := s.pos
	if !fn() {
		s.pos = save
	}
}

func (s *scanner) skipSpaces() {
	for s.pos < len(s.in) && unicode.IsSpace(s.in[s.pos]) {
		s.pos++
	}
}

// space consumes exactly one whitespace character.
func (s *scanner) space() bool {
	if r, ok := s.peek(); ok && unicode.IsSpace(r) {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) char(c rune) bool {
	if r, ok := s.peek(); ok && r == c {
		s.pos++
		return true
	}
	return false
}

// end accepts trailing whitespace followed by end of input.
func (s *scanner) end() *ParseError {
	s.skipSpaces()
	if s.pos != len(s.in) {
		return s.fail("unexpected trailing input")
	}
	return nil
}

// keyword matches kw with ASCII case folding.
func (s *scanner) keyword(kw string) bool {
	if kw == "" {
		return false
	}
	pos := s.pos
	for _, k := range kw {
		if pos >= len(s.in) || !asciiEqualFold(s.in[pos], k) {
			return false
		}
		pos++
	}
	s.pos = pos
	return true
}

func asciiEqualFold(a, b rune) bool {
	if a == b {
		return true
	}
	if a < unicode.MaxASCII && b < unicode.MaxASCII {
		return lowerASCII(a) == lowerASCII(b)
	}
	return false
}

func lowerASCII(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// digits consumes between min and max ASCII digits; max < 0 means unbounded.
// Nothing is consumed when fewer than min digits are present.
func (s *scanner) digits(min, max int) (string, bool) {
	start := s.pos
	pos := s.pos
	for pos < len(s.in) && (max < 0 || pos-start < max) && '0' <= s.in[pos] && s.in[pos] <= '9' {
		pos++
	}
	if pos-start < min {
		return "", false
	}
	s.pos = pos
	return string(s.in[start:pos]), true
}

// date reads YYYY-MM-DD and checks it names a real calendar day.
func (s *scanner) date() (year, month, day int, err *ParseError) {
	start := s.pos
	yyyy, ok := s.digits(4, 4)
	if !ok || !s.char('-') {
		return 0, 0, 0, s.fail("expected date YYYY-MM-DD")
	}
	mm, ok := s.digits(2, 2)
	if !ok || !s.char('-') {
		return 0, 0, 0, s.fail("expected date YYYY-MM-DD")
	}
	dd, ok := s.digits(2, 2)
	if !ok {
		return 0, 0, 0, s.fail("expected date YYYY-MM-DD")
	}

	year, _ = strconv.Atoi(yyyy)
	month, _ = strconv.Atoi(mm)
	day, _ = strconv.Atoi(dd)
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return 0, 0, 0, s.failAt(start, "invalid date")
	}
	return year, month, day, nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
