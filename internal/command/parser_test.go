package command

import (
	"errors"
	"testing"
	"time"

	"github.com/pathakanu/chronobot/internal/model"
	"github.com/pathakanu/chronobot/internal/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(Keywords{List: "chora", Remove: "cancela"}, time.UTC)
}

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestParseScenarios(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	cases := []struct {
		input string
		want  Action
	}{
		{"chora", ListReminders{ChatID: 1}},
		{"   chora   ", ListReminders{ChatID: 1}},
		{"CHORA", ListReminders{ChatID: 1}},
		{"cancela 42", RemoveReminder{ID: 42, ChatID: 1}},
		{"cancela 1", RemoveReminder{ID: 1, ChatID: 1}},
		{"cancela 2147483647", RemoveReminder{ID: 2147483647, ChatID: 1}},
		{"   cancela    2   ", RemoveReminder{ID: 2, ChatID: 1}},
		{"Cancela 7", RemoveReminder{ID: 7, ChatID: 1}},
		{"2020-02-03 hey", AddReminder{Due: at(2020, 2, 3, 0, 0), Message: "hey", ChatID: 1}},
		{"2020-03-02 hey ho", AddReminder{Due: at(2020, 3, 2, 0, 0), Message: "hey ho", ChatID: 1}},
		{"2020-02-03 00:00 hey", AddReminder{Due: at(2020, 2, 3, 0, 0), Message: "hey", ChatID: 1}},
		{"2020-02-03 23:59 hey", AddReminder{Due: at(2020, 2, 3, 23, 59), Message: "hey", ChatID: 1}},
		{
			"2020-02-03 23:59 +2w hey ho",
			AddReminder{Due: at(2020, 2, 3, 23, 59), Recurrence: &recurrence.Recurrence{Amount: 2, Unit: recurrence.Weeks}, Message: "hey ho", ChatID: 1},
		},
		{
			"  2024-02-29 +M pay rent  ",
			AddReminder{Due: at(2024, 2, 29, 0, 0), Recurrence: &recurrence.Recurrence{Amount: 1, Unit: recurrence.Months}, Message: "pay rent", ChatID: 1},
		},
		{
			"2020-02-03 08:30 +15m stretch",
			AddReminder{Due: at(2020, 2, 3, 8, 30), Recurrence: &recurrence.Recurrence{Amount: 15, Unit: recurrence.Minutes}, Message: "stretch", ChatID: 1},
		},
		{"2020-02-03  hey", AddReminder{Due: at(2020, 2, 3, 0, 0), Message: " hey", ChatID: 1}},
		{"2020-02-03 +5x hey", AddReminder{Due: at(2020, 2, 3, 0, 0), Message: "+5x hey", ChatID: 1}},
		{"2020-02-03 12:3 hey", AddReminder{Due: at(2020, 2, 3, 0, 0), Message: "12:3 hey", ChatID: 1}},
		{"2020-02-03 chora", AddReminder{Due: at(2020, 2, 3, 0, 0), Message: "chora", ChatID: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := p.Parse(1, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, model.ChatID(1), got.Chat())
		})
	}
}

func TestParseDefaultsToMidnight(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	for _, d := range []time.Time{at(1999, 12, 31, 0, 0), at(2020, 2, 29, 0, 0), at(2038, 1, 19, 0, 0)} {
		text := d.Format("2006-01-02") + " msg"
		got, err := p.Parse(9, text)
		require.NoError(t, err, text)
		assert.Equal(t, AddReminder{Due: d, Message: "msg", ChatID: 9}, got)

		withTime := d.Format("2006-01-02") + " 13:37 msg"
		got, err = p.Parse(9, withTime)
		require.NoError(t, err, withTime)
		assert.Equal(t, AddReminder{Due: d.Add(13*time.Hour + 37*time.Minute), Message: "msg", ChatID: 9}, got)
	}
}

func TestParseRecurrenceCeilings(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	for unit := recurrence.Minutes; unit <= recurrence.Years; unit++ {
		for amount := uint8(1); amount < unit.Ceiling(); amount++ {
			rec := recurrence.Recurrence{Amount: amount, Unit: unit}
			got, err := p.Parse(1, "2020-01-01 "+rec.String()+" x")
			require.NoError(t, err, rec.String())
			add, ok := got.(AddReminder)
			require.True(t, ok)
			require.NotNil(t, add.Recurrence)
			assert.Equal(t, rec, *add.Recurrence)
		}
	}

	for _, token := range []string{"+90m", "+24h", "+99d", "+10w", "+64M", "+10y", "+0d"} {
		_, err := p.Parse(1, "2020-01-01 "+token+" x")
		assert.ErrorIs(t, err, ErrParse, token)
	}
}

func TestParseFailures(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	inputs := []string{
		"",
		"   ",
		"hello there",
		"chora now",
		"choras",
		"cancela",
		"cancela abc",
		"cancela42",
		"cancela 4 2",
		"cancela 99999999999999999999",
		"2020-02-03",
		"2020-02-03 ",
		"2020-02-03   ",
		"2020-2-03 hey",
		"20-02-03 hey",
		"2020-02-30 hey",
		"2021-02-29 hey",
		"2020-13-01 hey",
		"2020-02-03 24:00 hey",
		"2020-02-03 12:60 hey",
		"2020-02-03 12:345 hey",
		"2020-02-03 +5dogs",
		"2020-02-03 +24h hey",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			action, err := p.Parse(1, input)
			assert.Nil(t, action)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, input, perr.Input)
			assert.NotEmpty(t, perr.Reason)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	_, err := p.Parse(1, "2020-02-03 25:00 hey")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 11, perr.Pos)
	assert.Equal(t, "invalid time", perr.Reason)
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	for _, input := range []string{"chora", "cancela 3", "2020-02-03 23:59 +2w hey"} {
		first, err := p.Parse(5, input)
		require.NoError(t, err)
		second, err := p.Parse(5, input)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestParseUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	p := NewParser(Keywords{List: "list", Remove: "rm"}, loc)

	got, err := p.Parse(1, "2022-06-01 07:00 wake up")
	require.NoError(t, err)
	add := got.(AddReminder)
	assert.Equal(t, loc, add.Due.Location())
	assert.Equal(t, 7, add.Due.Hour())
}

func TestUsage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "chora\ncancela <id>\nYYYY-MM-DD [HH:MM] [+N<m|h|d|w|M|y>] <message>", newTestParser().Usage())
}
