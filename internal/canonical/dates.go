package canonical

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	minYear = 1500
	maxYear = 2100
)

// ParsedDate is a possibly partial date. Exact is set only when year, month
// and day are all known and form a valid calendar date.
type ParsedDate struct {
	Exact  *time.Time
	Year   *int
	Month  *int
	Day    *int
	Text   *string
	Approx bool
}

// IsZero reports whether nothing at all was recovered.
func (d ParsedDate) IsZero() bool {
	return d.Exact == nil && d.Year == nil && d.Month == nil && d.Day == nil && d.Text == nil
}

// HasYear reports whether at least the year is known.
func (d ParsedDate) HasYear() bool {
	return d.Year != nil
}

var (
	nullWords = map[string]bool{
		"unknown": true,
		"n/a":     true,
		"na":      true,
		"-":       true,
		"?":       true,
		"none":    true,
	}

	approxPrefix = regexp.MustCompile(`(?i)^(circa|abt\.?|about|approx\.?|ca\.?|c\.?|~)\s*`)
	yearOnly     = regexp.MustCompile(`^(\d{4})$`)
	yearRange    = regexp.MustCompile(`^(\d{4})\s*/\s*(\d{2}|\d{4})$`)
	isoDate      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	dmyDate      = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})$`)
	monthYear    = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	serialText   = regexp.MustCompile(`^\d{3,6}(\.\d+)?$`)
)

// ParseDate converts a raw cell value into a ParsedDate. It never fails:
// values it cannot structure are kept as text.
func ParseDate(v any) ParsedDate {
	switch t := v.(type) {
	case nil:
		return ParsedDate{}
	case float64:
		return parseNumber(t)
	case int:
		return parseNumber(float64(t))
	case int64:
		return parseNumber(float64(t))
	case time.Time:
		return exactDate(t.Year(), int(t.Month()), t.Day())
	case string:
		return parseText(t)
	default:
		return ParsedDate{}
	}
}

func parseNumber(f float64) ParsedDate {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ParsedDate{}
	}
	if f == math.Trunc(f) && f >= minYear && f <= maxYear {
		return yearDate(int(f))
	}
	// Serial zero is the empty-date default of spreadsheet formulas.
	if f < 1 {
		return ParsedDate{}
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil || t.Year() < minYear || t.Year() > maxYear {
		return withText(ParsedDate{}, strconv.FormatFloat(f, 'f', -1, 64))
	}
	return exactDate(t.Year(), int(t.Month()), t.Day())
}

func parseText(raw string) ParsedDate {
	s := strings.TrimSpace(raw)
	if s == "" || nullWords[strings.ToLower(s)] {
		return ParsedDate{}
	}

	approx := false
	body := s
	if loc := approxPrefix.FindStringIndex(body); loc != nil && loc[1] < len(body) {
		rest := body[loc[1]:]
		if rest[0] >= '0' && rest[0] <= '9' {
			body = rest
			approx = true
		}
	}
	if strings.HasSuffix(body, "?") {
		body = strings.TrimSpace(strings.TrimSuffix(body, "?"))
		approx = true
	}

	d, ok := structure(body)
	if !ok {
		return withText(ParsedDate{}, s)
	}
	if approx {
		d.Approx = true
	}
	if d.Exact == nil {
		d = withText(d, s)
	}
	return d
}

func structure(s string) (ParsedDate, bool) {
	if m := yearOnly.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		if !yearInRange(y) {
			return ParsedDate{}, false
		}
		return yearDate(y), true
	}
	if m := yearRange.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		if !yearInRange(y) {
			return ParsedDate{}, false
		}
		d := yearDate(y)
		d.Approx = true
		return d, true
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3])
	}
	if m := dmyDate.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[2], m[1])
	}
	if m := monthYear.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[2])
		mo, _ := strconv.Atoi(m[1])
		if !yearInRange(y) || mo < 1 || mo > 12 {
			return ParsedDate{}, false
		}
		d := yearDate(y)
		d.Month = &mo
		return d, true
	}
	if serialText.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ParsedDate{}, false
		}
		d := parseNumber(f)
		if d.Year == nil {
			return ParsedDate{}, false
		}
		return d, true
	}
	return ParsedDate{}, false
}

func calendarDate(ys, ms, ds string) (ParsedDate, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if !yearInRange(y) || m < 1 || m > 12 || d < 1 {
		return ParsedDate{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31/02 into March; reject instead.
	if t.Day() != d || int(t.Month()) != m {
		return ParsedDate{}, false
	}
	return exactDate(y, m, d), true
}

func exactDate(y, m, d int) ParsedDate {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return ParsedDate{Exact: &t, Year: &y, Month: &m, Day: &d}
}

func yearDate(y int) ParsedDate {
	return ParsedDate{Year: &y}
}

func withText(d ParsedDate, s string) ParsedDate {
	d.Text = &s
	return d
}

func yearInRange(y int) bool {
	return y >= minYear && y <= maxYear
}

// combineDates resolves a date column with a separate year column. The date
// column wins when it yields a year; otherwise the year column supplies it
// and any free text of the date column is kept.
func combineDates(date, year ParsedDate) ParsedDate {
	if date.HasYear() {
		return date
	}
	if !year.HasYear() {
		if date.IsZero() {
			return year
		}
		return date
	}
	out := year
	if date.Text != nil {
		out.Text = date.Text
	}
	out.Approx = out.Approx || date.Approx
	return out
}
