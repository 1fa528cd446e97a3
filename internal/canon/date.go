package canon

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateOptions controls the locale policy for ambiguous dates. The
// defaults match the data this system was built for (day-first,
// two-digit years in the 2000s), but the policy is configuration, not
// a hidden constant, because it cannot be derived from the data.
type DateOptions struct {
	// DayFirst resolves slash-delimited numeric dates as D/M/Y when
	// true, M/D/Y when false.
	DayFirst bool

	// TwoDigitYearBase is added to two-digit years (2000 maps 24 to
	// 2024).
	TwoDigitYearBase int
}

// DefaultDateOptions returns the day-first, 2000s policy.
func DefaultDateOptions() DateOptions {
	return DateOptions{DayFirst: true, TwoDigitYearBase: 2000}
}

// Date is a canonical calendar date with its derived period buckets.
// Month is 0-based so month values index straight into a 12-slot
// yearly series.
type Date struct {
	ISO   string `json:"iso"` // YYYY-MM-DD
	Year  int    `json:"year"`
	Month int    `json:"month"` // 0-based
	Day   int    `json:"day"`
	Week  int    `json:"week"` // ISO-8601 week number
}

var (
	isoTimestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?$`)
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	slashDateRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
)

// Layouts tried as a last resort, after the known shapes.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate converts a raw value into a canonical Date, or nil when no
// interpretation succeeds. Callers treat nil as "no date available",
// never as an error to propagate.
//
// Accepted shapes, in order: ISO timestamp (time component ignored,
// date taken in UTC), ISO date prefix, slash-delimited numeric date
// under the DateOptions policy, then the fallback layouts.
func ParseDate(raw any, opts DateOptions) *Date {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return nil
	}

	if isoTimestampRe.MatchString(s) {
		layouts := []string{time.RFC3339, "2006-01-02T15:04:05"}
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return fromTime(t.UTC())
			}
		}
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return newDate(y, mo, d)
	}

	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += opts.TwoDigitYearBase
		}
		day, month := first, second
		if !opts.DayFirst {
			day, month = second, first
		}
		return newDate(y, month, day)
	}

	for _, l := range fallbackLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return fromTime(t.UTC())
		}
	}
	return nil
}

// newDate validates the components by round-tripping through time.Date
// (which normalizes 31/02 into March) and rejects anything that moved.
func newDate(year, month, day int) *Date {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return fromTime(t)
}

func fromTime(t time.Time) *Date {
	_, week := t.ISOWeek()
	return &Date{
		ISO:   t.Format("2006-01-02"),
		Year:  t.Year(),
		Month: int(t.Month()) - 1,
		Day:   t.Day(),
		Week:  week,
	}
}
