package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pathakanu/chronobot/internal/model"
	"github.com/pathakanu/chronobot/internal/recurrence"
)

// ErrParse matches every *ParseError.
var ErrParse = errors.New("command not understood")

// ParseError describes why a text is not a command.
type ParseError struct {
	Input  string
	Pos    int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q at %d: %s", e.Input, e.Pos, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Keywords are the configured command words.
type Keywords struct {
	List   string
	Remove string
}

// Parser turns free text into actions.
type Parser struct {
	keywords Keywords
	loc      *time.Location
}

// NewParser returns a parser that interprets dates in loc.
func NewParser(keywords Keywords, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{keywords: keywords, loc: loc}
}

type production func(p *Parser, s *scanner, chat model.ChatID) (Action, error)

// Productions are tried in priority order; the first one that matches the
// whole input wins.
var productions = []production{
	(*Parser).list,
	(*Parser).remove,
	(*Parser).add,
}

// Parse interprets text sent from chat.
func (p *Parser) Parse(chat model.ChatID, text string) (Action, error) {
	in := []rune(text)

	var furthest *ParseError
	for _, prod := range productions {
		action, err := prod(p, &scanner{in: in}, chat)
		if err == nil {
			return action, nil
		}
		var perr *ParseError
		if errors.As(err, &perr) && (furthest == nil || perr.Pos > furthest.Pos) {
			furthest = perr
		}
	}
	furthest.Input = text
	return nil, furthest
}

// Usage describes the accepted commands.
func (p *Parser) Usage() string {
	return strings.Join([]string{
		p.keywords.List,
		p.keywords.Remove + " <id>",
		"YYYY-MM-DD [HH:MM] [+N<m|h|d|w|M|y>] <message>",
	}, "\n")
}

func (p *Parser) list(s *scanner, chat model.ChatID) (Action, error) {
	s.skipSpaces()
	if !s.keyword(p.keywords.List) {
		return nil, s.fail("expected " + p.keywords.List)
	}
	if err := s.end(); err != nil {
		return nil, err
	}
	return ListReminders{ChatID: chat}, nil
}

func (p *Parser) remove(s *scanner, chat model.ChatID) (Action, error) {
	s.skipSpaces()
	if !s.keyword(p.keywords.Remove) {
		return nil, s.fail("expected " + p.keywords.Remove)
	}
	if !s.space() {
		return nil, s.fail("expected space after " + p.keywords.Remove)
	}
	s.skipSpaces()

	start := s.pos
	digits, ok := s.digits(1, -1)
	if !ok {
		return nil, s.fail("expected reminder id")
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, s.failAt(start, "reminder id out of range")
	}
	if err := s.end(); err != nil {
		return nil, err
	}
	return RemoveReminder{ID: id, ChatID: chat}, nil
}

func (p *Parser) add(s *scanner, chat model.ChatID) (Action, error) {
	s.skipSpaces()

	year, month, day, err := s.date()
	if err != nil {
		return nil, err
	}

	var hour, minute int
	var timeErr error
	s.try(func() bool {
		if !s.space() {
			return false
		}
		start := s.pos
		hh, ok := s.digits(2, 2)
		if !ok || !s.char(':') {
			return false
		}
		mm, ok := s.digits(2, 2)
		if !ok {
			return false
		}
		hour, _ = strconv.Atoi(hh)
		minute, _ = strconv.Atoi(mm)
		if hour > 23 || minute > 59 {
			timeErr = s.failAt(start, "invalid time")
		}
		return true
	})
	if timeErr != nil {
		return nil, timeErr
	}

	var rec *recurrence.Recurrence
	var recErr error
	s.try(func() bool {
		if !s.space() {
			return false
		}
		start := s.pos
		if !s.char('+') {
			return false
		}
		s.digits(0, 2)
		r, ok := s.peek()
		if !ok {
			return false
		}
		if _, isUnit := recurrence.UnitFromLetter(r); !isUnit {
			return false
		}
		s.pos++
		parsed, err := recurrence.Parse(string(s.in[start:s.pos]))
		if err != nil {
			recErr = s.failAt(start, err.Error())
			return true
		}
		rec = &parsed
		return true
	})
	if recErr != nil {
		return nil, recErr
	}

	if !s.space() {
		return nil, s.fail("expected space before message")
	}
	message := strings.TrimRightFunc(string(s.in[s.pos:]), unicode.IsSpace)
	if message == "" {
		return nil, s.fail("expected message")
	}

	return AddReminder{
		Due:        time.Date(year, time.Month(month), day, hour, minute, 0, 0, p.loc),
		Recurrence: rec,
		Message:    message,
		ChatID:     chat,
	}, nil
}
