// Package format renders values the way the dashboard displays them.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Missing is shown in place of an absent value.
const Missing = "-"

// SlotToTime renders a 15 minute slot index as HH:MM.
func SlotToTime(slot int) string {
	return fmt.Sprintf("%02d:%02d", slot/4, (slot%4)*15)
}

// SlotAt returns the 15 minute slot index of t in [0,95].
func SlotAt(t time.Time) int {
	return t.Hour()*4 + t.Minute()/15
}

// Currency renders a price in CZK, e.g. "123.46,-Kc".
func Currency(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + ",-Kc"
}

// Bytes renders a size with 1024 steps between B, KB, MB and GB.
func Bytes(n *int64) string {
	if n == nil {
		return Missing
	}
	if *n < 1024 {
		return strconv.FormatInt(*n, 10) + " B"
	}
	v := float64(*n) / 1024
	for _, unit := range []string{"KB", "MB"} {
		if v < 1024 {
			return strconv.FormatFloat(v, 'f', 1, 64) + " " + unit
		}
		v /= 1024
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " GB"
}

// Duration renders minutes as "N min", "H h" or "H h M min". It returns an
// empty string when minutes is nil.
func Duration(minutes *int) string {
	if minutes == nil {
		return ""
	}
	m := *minutes
	if m < 60 {
		return strconv.Itoa(m) + " min"
	}
	h, rest := m/60, m%60
	if rest == 0 {
		return strconv.Itoa(h) + " h"
	}
	return fmt.Sprintf("%d h %d min", h, rest)
}

// Clock renders an RFC 3339 timestamp as HH:MM in loc. It returns an empty
// string when the timestamp cannot be parsed.
func Clock(iso string, loc *time.Location) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", iso, loc)
		if err != nil {
			return ""
		}
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}

var czechMonths = [...]string{
	"leden", "unor", "brezen", "duben", "kveten", "cerven",
	"cervenec", "srpen", "zari", "rijen", "listopad", "prosinec",
}

// MonthLabel renders YYYY-MM as e.g. "brezen 2026".
func MonthLabel(month string) string {
	if month == "" {
		return Missing
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return czechMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// Watts renders power, switching to kW from 1000 W.
func Watts(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Missing
	}
	if math.Abs(*v) >= 1000 {
		return strconv.FormatFloat(*v/1000, 'f', 2, 64) + " kW"
	}
	return strconv.FormatFloat(math.Round(*v), 'f', 0, 64) + " W"
}

// SignedWatts renders power with an explicit sign, e.g. "+250 W".
func SignedWatts(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	s := strconv.FormatFloat(math.Round(*v), 'f', 0, 64) + " W"
	if *v >= 0 && !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}

// KWh renders energy with two decimals.
func KWh(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + " kWh"
}

// Percent renders a state of charge without decimals.
func Percent(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', 0, 64) + " %"
}
