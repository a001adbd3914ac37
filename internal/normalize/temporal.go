package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
)

// isoLayouts are tried, in order, for text that already looks like ISO-8601.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// shortStamp matches platform history stamps such as "Jun 16, 8:50:55 PM".
var shortStamp = regexp.MustCompile(`^([A-Za-z]{3})[A-Za-z]*\.?\s+(\d{1,2}),?\s+(\d{1,2}):(\d{2}):(\d{2})\s*([AaPp][Mm])$`)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// TimeParser turns heterogeneous timestamp text into a time.Time.
// Now supplies the calendar year for stamps that omit it.
type TimeParser struct {
	Now      func() time.Time
	Location *time.Location
}

// NewTimeParser creates a parser that resolves zone-less stamps in loc.
func NewTimeParser(loc *time.Location) *TimeParser {
	if loc == nil {
		loc = time.UTC
	}
	return &TimeParser{Now: time.Now, Location: loc}
}

var defaultTimeParser = NewTimeParser(time.UTC)

// ParseTime parses raw with a UTC parser bound to the wall clock.
func ParseTime(raw any) (time.Time, bool) {
	return defaultTimeParser.Parse(raw)
}

// Parse returns the instant described by raw. The boolean is false for empty,
// unrecognised or calendar-invalid input.
func (p *TimeParser) Parse(raw any) (time.Time, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s = v
	default:
		str, err := cast.ToStringE(raw)
		if err != nil {
			return time.Time{}, false
		}
		s = str
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, parse := range []func(string) (time.Time, bool){p.parseISO, p.parseShortStamp, p.parseGeneric} {
		if t, ok := parse(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *TimeParser) parseISO(s string) (time.Time, bool) {
	if !strings.Contains(s, "T") || !strings.Contains(s, "-") {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *TimeParser) parseShortStamp(s string) (time.Time, bool) {
	m := shortStamp.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	month, ok := monthAbbrev[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	second, _ := strconv.Atoi(m[5])
	if hour < 1 || hour > 12 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	switch pm := strings.EqualFold(m[6], "pm"); {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}

	year := p.now().In(p.location()).Year()
	t := time.Date(year, month, day, hour, minute, second, 0, p.location())
	// time.Date normalises overflow ("Feb 30" becomes "Mar 2"); reject it instead.
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func (p *TimeParser) parseGeneric(s string) (time.Time, bool) {
	t, err := dateparse.ParseIn(s, p.location())
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func (p *TimeParser) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p *TimeParser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
