package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateParserFormat(t *testing.T) {
	d := NewDateParser(time.UTC)

	got, err := d.Parse("2021/03/14", "%Y/%m/%d")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC), got)

	got, err = d.Parse("14.03.2021 09:30", "%d.%m.%Y %H:%M")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 14, 9, 30, 0, 0, time.UTC), got)
}

func TestDateParserFormatIncomplete(t *testing.T) {
	d := NewDateParser(time.UTC)
	_, err := d.Parse("2021/03", "%Y/%m")
	assert.ErrorIs(t, err, ErrIncompleteDate)

	_, err = d.Parse("10:30", "%H:%M")
	assert.ErrorIs(t, err, ErrIncompleteDate)
}

func TestDateParserFormatMismatch(t *testing.T) {
	d := NewDateParser(time.UTC)
	_, err := d.Parse("March 2021", "%Y-%m-%d")
	assert.Error(t, err)
}

func TestDateParserGuess(t *testing.T) {
	d := NewDateParser(time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2020-09-13T20:00:00+00:00", time.Date(2020, 9, 13, 20, 0, 0, 0, time.UTC)},
		{"2020-09-13", time.Date(2020, 9, 13, 0, 0, 0, 0, time.UTC)},
		{"Wed, 21 Oct 2015 07:28:00 GMT", time.Date(2015, 10, 21, 7, 28, 0, 0, time.UTC)},
		{"September 13, 2020", time.Date(2020, 9, 13, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := d.Guess(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(tt.want), "%s: got %v", tt.in, got)
	}
}

func TestDateParserGuessRejectsPartialDates(t *testing.T) {
	d := NewDateParser(time.UTC)
	for _, in := range []string{"2020", "12:30:45", "May 2020", "yesterday", ""} {
		_, err := d.Parse(in, "")
		assert.Error(t, err, in)
	}
}

func TestDateParserNaiveDatesUseLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	d := NewDateParser(loc)
	got, err := d.Parse("2022-01-02 10:00", "%Y-%m-%d %H:%M")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 2, 13, 0, 0, 0, time.UTC), got.UTC())
}

func TestFormatIsComplete(t *testing.T) {
	assert.True(t, formatIsComplete("%Y-%m-%d"))
	assert.True(t, formatIsComplete("%F"))
	assert.True(t, formatIsComplete("%d %B %y"))
	assert.True(t, formatIsComplete("%-d/%-m/%Y"))
	assert.False(t, formatIsComplete("%Y-%m"))
	assert.False(t, formatIsComplete("%%Y%%m%%d"))
}
