package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	require.NoError(t, err)
	return ts
}

func TestNewCeilings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		unit    Unit
		maxOK   uint8
		ceiling uint8
	}{
		{Minutes, 89, 90},
		{Hours, 23, 24},
		{Days, 98, 99},
		{Weeks, 9, 10},
		{Months, 63, 64},
		{Years, 9, 10},
	}

	for _, tc := range cases {
		t.Run(tc.unit.String(), func(t *testing.T) {
			r, err := New(tc.maxOK, tc.unit)
			require.NoError(t, err)
			assert.Equal(t, Recurrence{Amount: tc.maxOK, Unit: tc.unit}, r)

			_, err = New(tc.ceiling, tc.unit)
			assert.ErrorIs(t, err, ErrInvalidPeriod)

			_, err = New(0, tc.unit)
			assert.ErrorIs(t, err, ErrInvalidPeriod)
		})
	}
}

func TestNewUnknownUnit(t *testing.T) {
	t.Parallel()
	_, err := New(1, Unit(42))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]Recurrence{
		"+5d":  {5, Days},
		"+d":   {1, Days},
		"+89m": {89, Minutes},
		"+3M":  {3, Months},
		"+1y":  {1, Years},
		"+9w":  {9, Weeks},
		"+05h": {5, Hours},
	}
	for token, want := range cases {
		got, err := Parse(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	periods := []string{"+90m", "+24h", "+99d", "+10w", "+64M", "+10y", "+0d"}
	for _, token := range periods {
		_, err := Parse(token)
		assert.ErrorIs(t, err, ErrInvalidPeriod, token)
	}

	malformed := []string{"", "+", "5d", "+5x", "+123d", "+a1d", "-1d"}
	for _, token := range malformed {
		_, err := Parse(token)
		assert.ErrorIs(t, err, ErrSyntax, token)
		assert.False(t, errors.Is(err, ErrInvalidPeriod), token)
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	for unit := Minutes; unit <= Years; unit++ {
		for amount := uint8(1); amount < unit.Ceiling(); amount++ {
			r, err := New(amount, unit)
			require.NoError(t, err)

			back, err := Parse(r.String())
			require.NoError(t, err, r.String())
			assert.Equal(t, r, back)
		}
	}
}

func TestAdvanceLinearUnits(t *testing.T) {
	t.Parallel()

	start := date(t, "2020-12-31 23:30")
	cases := []struct {
		r    Recurrence
		want string
	}{
		{Recurrence{45, Minutes}, "2021-01-01 00:15"},
		{Recurrence{2, Hours}, "2021-01-01 01:30"},
		{Recurrence{1, Days}, "2021-01-01 23:30"},
		{Recurrence{2, Weeks}, "2021-01-14 23:30"},
	}
	for _, tc := range cases {
		assert.Equal(t, date(t, tc.want), Advance(start, tc.r), tc.r.String())
	}
}

func TestAdvanceMonthsAndYears(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from string
		r    Recurrence
		want string
	}{
		{"2020-11-01 00:00", Recurrence{3, Months}, "2021-02-01 00:00"},
		{"2020-02-01 00:00", Recurrence{1, Years}, "2021-02-01 00:00"},
		{"2020-12-15 08:00", Recurrence{1, Months}, "2021-01-15 08:00"},
		{"2020-01-15 08:00", Recurrence{11, Months}, "2020-12-15 08:00"},
		{"2020-01-15 08:00", Recurrence{12, Months}, "2021-01-15 08:00"},
		{"2020-05-10 10:10", Recurrence{63, Months}, "2025-08-10 10:10"},
		{"2019-03-03 03:03", Recurrence{9, Years}, "2028-03-03 03:03"},
	}
	for _, tc := range cases {
		got := Advance(date(t, tc.from), tc.r)
		assert.Equal(t, date(t, tc.want), got, "%s %s", tc.from, tc.r)
	}
}

func TestAdvanceClampsDayOfMonth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from string
		r    Recurrence
		want string
	}{
		{"2021-01-31 09:00", Recurrence{1, Months}, "2021-02-28 09:00"},
		{"2020-01-31 09:00", Recurrence{1, Months}, "2020-02-29 09:00"},
		{"2020-03-31 09:00", Recurrence{1, Months}, "2020-04-30 09:00"},
		{"2020-02-29 12:00", Recurrence{1, Years}, "2021-02-28 12:00"},
		{"2020-02-29 12:00", Recurrence{4, Years}, "2024-02-29 12:00"},
	}
	for _, tc := range cases {
		got := Advance(date(t, tc.from), tc.r)
		assert.Equal(t, date(t, tc.want), got, "%s %s", tc.from, tc.r)
	}
}

func TestAdvanceKeepsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	due := time.Date(2022, 6, 1, 7, 0, 0, 0, loc)
	got := Advance(due, Recurrence{1, Days})
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, time.Date(2022, 6, 2, 7, 0, 0, 0, loc), got)
}

func TestPackUnpack(t *testing.T) {
	t.Parallel()

	r := Recurrence{Amount: 42, Unit: Months}
	packed := r.Pack()
	assert.Equal(t, int32(42|5<<24), packed)

	back, err := Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, r, back)

	for _, v := range []int32{
		7,
		int32(Days) << 24,
		int32(Hours)<<24 | 200,
		int32(Minutes)<<24 | 90,
		int32(Years)<<24 | 10,
	} {
		_, err = Unpack(v)
		assert.ErrorIs(t, err, ErrInvalidPeriod, "%#x", v)
	}
}
