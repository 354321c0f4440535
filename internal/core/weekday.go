package core

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// WeekdayTable maps the day names stored in weekly rules to weekdays.
// Names are persisted verbatim, so the table must match the locale the
// records were captured in.
type WeekdayTable struct {
	locale string
	names  [7]string // indexed by time.Weekday
	index  map[string]time.Weekday
}

var (
	// SpanishWeekdays is the default table (Lunes..Domingo).
	SpanishWeekdays = NewWeekdayTable("es", [7]string{
		"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado",
	})
	EnglishWeekdays = NewWeekdayTable("en", [7]string{
		"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
	})
)

// NewWeekdayTable builds a table from names indexed Sunday-first, matching time.Weekday.
func NewWeekdayTable(locale string, names [7]string) WeekdayTable {
	t := WeekdayTable{locale: locale, names: names, index: make(map[string]time.Weekday, 7)}
	for i, n := range names {
		t.index[foldName(n)] = time.Weekday(i)
	}
	return t
}

// WeekdayTableFor returns the built-in table for a locale code.
func WeekdayTableFor(locale string) (WeekdayTable, error) {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "", "es":
		return SpanishWeekdays, nil
	case "en":
		return EnglishWeekdays, nil
	default:
		return WeekdayTable{}, fmt.Errorf("unsupported weekday locale %q", locale)
	}
}

// Lookup resolves a day name ignoring case, surrounding space and accents.
func (t WeekdayTable) Lookup(name string) (time.Weekday, bool) {
	if t.index == nil || strings.TrimSpace(name) == "" {
		return 0, false
	}
	wd, ok := t.index[foldName(name)]
	return wd, ok
}

// Name returns the canonical name of a weekday.
func (t WeekdayTable) Name(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return ""
	}
	return t.names[wd]
}

// Names lists the day names Monday-first, the order recurrence forms use.
func (t WeekdayTable) Names() []string {
	out := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		out = append(out, t.names[i%7])
	}
	return out
}

func (t WeekdayTable) Locale() string {
	return t.locale
}

func foldName(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
