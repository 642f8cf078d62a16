package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestIsBusinessDay(t *testing.T) {
	// 2025-10-06 是週一
	start := Date(2025, time.October, 6)
	want := []bool{true, true, true, true, true, false, false}

	for i, expected := range want {
		d := start.AddDate(0, 0, i)
		assert.Equal(t, expected, IsBusinessDay(d), "date %s", FormatISO(d))
	}
}

func TestNextBusinessDay(t *testing.T) {
	testCases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"weekday is identity", Date(2025, time.October, 9), Date(2025, time.October, 9)},
		{"friday is identity", Date(2025, time.October, 10), Date(2025, time.October, 10)},
		{"saturday to monday", Date(2025, time.October, 11), Date(2025, time.October, 13)},
		{"sunday to monday", Date(2025, time.October, 12), Date(2025, time.October, 13)},
		{"across month", Date(2025, time.November, 30), Date(2025, time.December, 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextBusinessDay(tc.in))
		})
	}
}

func TestNextBusinessDay_Idempotent(t *testing.T) {
	start := Date(2025, time.January, 1)
	for i := 0; i < 400; i++ {
		d := start.AddDate(0, 0, i)
		once := NextBusinessDay(d)
		assert.Equal(t, once, NextBusinessDay(once))
		assert.True(t, IsBusinessDay(once))
		assert.False(t, once.Before(d))
	}
}

func TestNextBusinessDay_DropsClock(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	in := time.Date(2025, time.October, 11, 23, 30, 0, 0, loc)
	assert.Equal(t, Date(2025, time.October, 13), NextBusinessDay(in))
}

func TestFollowingBusinessDay(t *testing.T) {
	assert.Equal(t, Date(2025, time.October, 13), FollowingBusinessDay(Date(2025, time.October, 10)))
	assert.Equal(t, Date(2025, time.October, 10), FollowingBusinessDay(Date(2025, time.October, 9)))
	assert.Equal(t, Date(2025, time.October, 13), FollowingBusinessDay(Date(2025, time.October, 11)))
}

func TestAddBusinessDays(t *testing.T) {
	thu := Date(2025, time.October, 9)
	assert.Equal(t, thu, AddBusinessDays(thu, 0))
	assert.Equal(t, Date(2025, time.October, 10), AddBusinessDays(thu, 1))
	assert.Equal(t, Date(2025, time.October, 13), AddBusinessDays(thu, 2))
	assert.Equal(t, Date(2025, time.October, 16), AddBusinessDays(thu, 5))
	assert.Equal(t, thu, AddBusinessDays(thu, -3))
}

func TestBusinessDaysBetween(t *testing.T) {
	testCases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"same day", Date(2025, time.October, 9), Date(2025, time.October, 9), 1},
		{"same weekend day", Date(2025, time.October, 11), Date(2025, time.October, 11), 0},
		{"thu to mon", Date(2025, time.October, 9), Date(2025, time.October, 13), 3},
		{"full week", Date(2025, time.October, 6), Date(2025, time.October, 12), 5},
		{"weekend only", Date(2025, time.October, 11), Date(2025, time.October, 12), 0},
		{"two weeks plus", Date(2025, time.October, 9), Date(2025, time.October, 24), 12},
		{"reversed", Date(2025, time.October, 13), Date(2025, time.October, 9), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BusinessDaysBetween(tc.start, tc.end))
		})
	}
}

func TestBusinessDaysBetween_MatchesNaiveCount(t *testing.T) {
	start := Date(2025, time.September, 27)
	for span := 0; span < 60; span++ {
		end := start.AddDate(0, 0, span)
		naive := 0
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if IsBusinessDay(d) {
				naive++
			}
		}
		assert.Equal(t, naive, BusinessDaysBetween(start, end), "span %d", span)
	}
}

func TestParseISO(t *testing.T) {
	d, err := ParseISO(" 2025-10-09 ")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, time.October, 9), d)
	assert.Equal(t, "2025-10-09", FormatISO(d))

	_, err = ParseISO("09/10/2025")
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	d := Date(2025, time.October, 9)
	assert.Equal(t, "09/10/2025 (quinta-feira)", Label(d, language.MustParse("pt-BR")))
	assert.Equal(t, "2025-10-09 (Thursday)", Label(d, language.English))
}

func TestParseWeekday(t *testing.T) {
	testCases := map[string]int{
		"0":           0,
		"4":           4,
		"tuesday":     1,
		"Tue":         1,
		"terça-feira": 1,
		"sexta":       4,
		"qui":         3,
	}
	for in, want := range testCases {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWeekday("someday")
	assert.Error(t, err)
}

func TestPreviousBusinessDay(t *testing.T) {
	assert.Equal(t, Date(2025, time.October, 8), PreviousBusinessDay(Date(2025, time.October, 9)))
	assert.Equal(t, Date(2025, time.October, 10), PreviousBusinessDay(Date(2025, time.October, 13)))
	assert.Equal(t, Date(2025, time.October, 10), PreviousBusinessDay(Date(2025, time.October, 12)))

	for i := 0; i < 30; i++ {
		d := Date(2025, time.October, 1).AddDate(0, 0, i)
		prev := PreviousBusinessDay(d)
		assert.True(t, prev.Before(d))
		assert.Equal(t, NextBusinessDay(d), FollowingBusinessDay(prev))
	}
}
