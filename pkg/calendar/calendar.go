// Package calendar implements the anchor arithmetic used by the period
// navigators. An anchor is YYYY-MM-DD for a week, YYYY-MM for a month and
// YYYY for a year.
package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/elektroapp/elektrodash/pkg/types"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var leadInt = regexp.MustCompile(`^\s*[+-]?\d+`)

// Today returns now as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// CurrentMonth returns now as YYYY-MM.
func CurrentMonth(now time.Time) string {
	return now.Format(MonthLayout)
}

// CurrentYear returns the year of now.
func CurrentYear(now time.Time) int {
	return now.Year()
}

// NormalizeAnchor coerces raw into the anchor shape of period using the
// current local time.
func NormalizeAnchor(period types.Period, raw string) string {
	return NormalizeAnchorAt(time.Now(), period, raw)
}

// NormalizeAnchorAt coerces raw into the anchor shape of period. Anchors that
// do not name a real month or day, like "2025-13" or "2025-02-30", fall back to
// now in that shape.
func NormalizeAnchorAt(now time.Time, period types.Period, raw string) string {
	switch period {
	case types.PeriodYear:
		if y, ok := parseLeadingInt(raw); ok {
			return strconv.Itoa(y)
		}
		return strconv.Itoa(CurrentYear(now))
	case types.PeriodMonth:
		if _, err := time.Parse(MonthLayout, raw); err == nil {
			return raw
		}
		return CurrentMonth(now)
	default:
		if _, err := time.Parse(DateLayout, raw); err == nil {
			return raw
		}
		return Today(now)
	}
}

// ShiftAnchor moves anchor by delta periods using the current local time for
// normalization.
func ShiftAnchor(period types.Period, anchor string, delta int) string {
	return ShiftAnchorAt(time.Now(), period, anchor, delta)
}

// ShiftAnchorAt normalizes anchor and moves it by delta years, months or
// weeks. Month and day overflow roll over into the following month or year.
func ShiftAnchorAt(now time.Time, period types.Period, anchor string, delta int) string {
	norm := NormalizeAnchorAt(now, period, anchor)
	switch period {
	case types.PeriodYear:
		y, ok := parseLeadingInt(norm)
		if !ok || y == 0 {
			y = CurrentYear(now)
		}
		return strconv.Itoa(y + delta)
	case types.PeriodMonth:
		t, _ := time.Parse(MonthLayout, norm)
		return t.AddDate(0, delta, 0).Format(MonthLayout)
	default:
		t, _ := time.Parse(DateLayout, norm)
		return t.AddDate(0, 0, 7*delta).Format(DateLayout)
	}
}

// parseLeadingInt parses the integer prefix of s, ignoring anything after it.
func parseLeadingInt(s string) (int, bool) {
	m := leadInt.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, false
	}
	return n, true
}
