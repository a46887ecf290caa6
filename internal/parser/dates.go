package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/ncruces/go-strftime"
)

// ErrIncompleteDate is returned for text that parses but does not carry a
// year, a month and a day.
var ErrIncompleteDate = errors.New("date lacks year, month or day")

var (
	clockRe  = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2}(?:[.,]\d+)?)?`)
	digitsRe = regexp.MustCompile(`\d+`)
	monthRe  = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\b`)
)

// DateParser turns located date text into an instant. Dates without an
// explicit offset are read in Location.
type DateParser struct {
	Location *time.Location
}

// NewDateParser returns a parser that reads naive dates in loc; nil means
// time.Local.
func NewDateParser(loc *time.Location) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	return &DateParser{Location: loc}
}

// Parse parses text with the strftime-style format, or guesses the layout
// when format is empty.
func (d *DateParser) Parse(text, format string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, errors.New("empty date text")
	}
	if format != "" {
		return d.parseFormat(text, format)
	}
	return d.Guess(text)
}

// Guess parses text without a known layout.
func (d *DateParser) Guess(text string) (time.Time, error) {
	if !looksComplete(text) {
		return time.Time{}, fmt.Errorf("%q: %w", text, ErrIncompleteDate)
	}
	t, err := dateparse.ParseIn(text, d.Location)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (d *DateParser) parseFormat(text, format string) (time.Time, error) {
	if !formatIsComplete(format) {
		return time.Time{}, fmt.Errorf("format %q: %w", format, ErrIncompleteDate)
	}
	layout, err := strftime.Layout(format)
	if err != nil {
		return time.Time{}, fmt.Errorf("format %q: %w", format, err)
	}
	return time.ParseInLocation(layout, text, d.Location)
}

// looksComplete reports whether free-form date text plausibly names a day,
// a month and a year. Times of day and UTC offsets are ignored.
func looksComplete(text string) bool {
	stripped := clockRe.ReplaceAllString(text, " ")
	groups := digitsRe.FindAllString(stripped, -1)
	for _, g := range groups {
		// 20200913, or a unix timestamp.
		if len(g) >= 8 {
			return true
		}
	}
	if monthRe.MatchString(stripped) {
		return len(groups) >= 2
	}
	return len(groups) >= 3
}

// formatIsComplete reports whether a strftime format has year, month and day
// directives.
func formatIsComplete(format string) bool {
	var year, month, day bool
	for i := 0; i < len(format)-1; i++ {
		if format[i] != '%' {
			continue
		}
		i++
		c := format[i]
		// Skip padding and locale modifiers such as %-d, %Ey or %Od.
		for (c == '-' || c == '_' || c == '0' || c == '^' || c == '#' || c == 'E' || c == 'O') && i < len(format)-1 {
			i++
			c = format[i]
		}
		switch c {
		case 'Y', 'y', 'G', 'g':
			year = true
		case 'm', 'b', 'B', 'h':
			month = true
		case 'd', 'e':
			day = true
		case 'F', 'D', 'x', 'c', 's':
			year, month, day = true, true, true
		}
	}
	return year && month && day
}
