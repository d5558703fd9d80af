package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Unit is the granularity of a repeat interval.
type Unit uint8

const (
	Minutes Unit = iota + 1
	Hours
	Days
	Weeks
	Months
	Years
)

var (
	// ErrInvalidPeriod is returned when an amount is zero or not below its unit ceiling.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrSyntax is returned when a recurrence token is not shaped like +{amount}{unit}.
	ErrSyntax = errors.New("malformed recurrence")
)

// ceilings holds the exclusive upper bound for each unit's amount.
var ceilings = map[Unit]uint8{
	Minutes: 90,
	Hours:   24,
	Days:    99,
	Weeks:   10,
	Months:  64,
	Years:   10,
}

// UnitFromLetter maps a unit letter to its Unit. Lowercase m is minutes,
// uppercase M is months.
func UnitFromLetter(r rune) (Unit, bool) {
	switch r {
	case 'm':
		return Minutes, true
	case 'h':
		return Hours, true
	case 'd':
		return Days, true
	case 'w':
		return Weeks, true
	case 'M':
		return Months, true
	case 'y':
		return Years, true
	default:
		return 0, false
	}
}

// Letter returns the single-letter form used in commands.
func (u Unit) Letter() rune {
	switch u {
	case Minutes:
		return 'm'
	case Hours:
		return 'h'
	case Days:
		return 'd'
	case Weeks:
		return 'w'
	case Months:
		return 'M'
	case Years:
		return 'y'
	default:
		return '?'
	}
}

// Ceiling returns the exclusive upper bound for amounts of this unit, or 0 for
// an unknown unit.
func (u Unit) Ceiling() uint8 {
	return ceilings[u]
}

func (u Unit) String() string {
	switch u {
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	case Months:
		return "months"
	case Years:
		return "years"
	default:
		return fmt.Sprintf("unit(%d)", uint8(u))
	}
}

// Recurrence is a validated repeat interval. Build it with New or Parse.
type Recurrence struct {
	Amount uint8
	Unit   Unit
}

// New validates amount against the unit ceiling.
func New(amount uint8, unit Unit) (Recurrence, error) {
	ceiling, ok := ceilings[unit]
	if !ok {
		return Recurrence{}, fmt.Errorf("%w: unknown unit %d", ErrInvalidPeriod, uint8(unit))
	}
	if amount == 0 || amount >= ceiling {
		return Recurrence{}, fmt.Errorf("%w: %d %s (must be 1-%d)", ErrInvalidPeriod, amount, unit, ceiling-1)
	}
	return Recurrence{Amount: amount, Unit: unit}, nil
}

// Parse reads a token of the form +{amount}{unit}, where amount is one or two
// digits and defaults to 1.
func Parse(token string) (Recurrence, error) {
	runes := []rune(token)
	if len(runes) < 2 || runes[0] != '+' {
		return Recurrence{}, fmt.Errorf("%w: %q", ErrSyntax, token)
	}
	digits := runes[1 : len(runes)-1]
	if len(digits) > 2 {
		return Recurrence{}, fmt.Errorf("%w: %q", ErrSyntax, token)
	}
	unit, ok := UnitFromLetter(runes[len(runes)-1])
	if !ok {
		return Recurrence{}, fmt.Errorf("%w: %q", ErrSyntax, token)
	}

	amount := uint64(1)
	if len(digits) > 0 {
		for _, d := range digits {
			if d < '0' || d > '9' {
				return Recurrence{}, fmt.Errorf("%w: %q", ErrSyntax, token)
			}
		}
		var err error
		amount, err = strconv.ParseUint(string(digits), 10, 8)
		if err != nil {
			return Recurrence{}, fmt.Errorf("%w: %q", ErrSyntax, token)
		}
	}
	return New(uint8(amount), unit)
}

// String renders the recurrence as it is typed in commands, e.g. "+2w".
func (r Recurrence) String() string {
	return "+" + strconv.Itoa(int(r.Amount)) + string(r.Unit.Letter())
}

// Advance moves due forward by r on the wall clock of due's location.
// Month and year steps keep the time of day and clamp the day of month to
// the last day of the target month.
func Advance(due time.Time, r Recurrence) time.Time {
	n := int(r.Amount)
	year, month, day := due.Date()
	hour, minute, sec := due.Clock()
	loc := due.Location()

	switch r.Unit {
	case Minutes:
		return time.Date(year, month, day, hour, minute+n, sec, due.Nanosecond(), loc)
	case Hours:
		return time.Date(year, month, day, hour+n, minute, sec, due.Nanosecond(), loc)
	case Days:
		return time.Date(year, month, day+n, hour, minute, sec, due.Nanosecond(), loc)
	case Weeks:
		return time.Date(year, month, day+7*n, hour, minute, sec, due.Nanosecond(), loc)
	case Months:
		m := int(month) - 1 + n
		year += m / 12
		month = time.Month(m%12 + 1)
	case Years:
		year += n
	default:
		return due
	}

	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, sec, due.Nanosecond(), loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Pack encodes r into the persisted integer form: little-endian bytes
// [amount, 0, 0, unit].
func (r Recurrence) Pack() int32 {
	return int32(uint32(r.Amount) | uint32(r.Unit)<<24)
}

// Unpack decodes a value produced by Pack, applying the same checks as New.
func Unpack(v int32) (Recurrence, error) {
	u := uint32(v)
	amount := uint8(u & 0xff)
	unit := Unit(u >> 24)
	if _, ok := ceilings[unit]; !ok {
		return Recurrence{}, fmt.Errorf("%w: invalid value for recurrence unit: %d", ErrInvalidPeriod, uint8(unit))
	}
	return New(amount, unit)
}
