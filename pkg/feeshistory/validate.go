package feeshistory

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// ValidationError is returned when the drafts cannot be submitted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate checks the whole collection: it must not be empty, dates must
// parse, effective_to may not precede effective_from, effective_from must be
// unique and ranges may not overlap once open-ended entries are closed the
// day before their successor starts. Gaps between ranges are allowed.
func Validate(drafts []Draft) error {
	type parsed struct {
		from, to time.Time
		hasTo    bool
	}
	seen := make(map[string]struct{}, len(drafts))
	entries := make([]parsed, 0, len(drafts))
	for _, d := range drafts {
		if d.EffectiveFrom == "" {
			continue
		}
		from, ok := parseDate(d.EffectiveFrom)
		if !ok {
			return invalid("Neplatne datum: " + d.EffectiveFrom)
		}
		p := parsed{from: from}
		if d.EffectiveTo != "" {
			to, ok := parseDate(d.EffectiveTo)
			if !ok {
				return invalid("Neplatne datum: " + d.EffectiveTo)
			}
			if to.Before(from) {
				return invalid("Platne do musi byt stejne nebo pozdeji nez Platne od.")
			}
			p.to, p.hasTo = to, true
		}
		if _, dup := seen[d.EffectiveFrom]; dup {
			return invalid("Duplicita data Platne od: " + d.EffectiveFrom)
		}
		seen[d.EffectiveFrom] = struct{}{}
		entries = append(entries, p)
	}
	if len(entries) == 0 {
		return invalid("Historie nesmi byt prazdna.")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].from.Before(entries[j].from)
	})
	for i := 0; i < len(entries)-1; i++ {
		cur, next := entries[i], entries[i+1]
		curTo := cur.to
		if !cur.hasTo {
			curTo = next.from.AddDate(0, 0, -1)
		}
		if curTo.Before(cur.from) {
			return invalid("Platne do musi byt stejne nebo pozdeji nez Platne od.")
		}
		if !curTo.Before(next.from) {
			return invalid("Rozsahy poplatku se prekryvaji. Uprav Platne do/od.")
		}
	}
	return nil
}

// Range is the resolved validity of a draft.
type Range struct {
	// ValidTo is effective_to, or the day before the next period starts for
	// an open-ended period. Empty means the period is still running.
	ValidTo   string
	IsCurrent bool
}

// sortDrafts orders drafts by effective_from. Drafts whose date does not
// parse come first.
func sortDrafts(drafts []Draft) []Draft {
	sorted := make([]Draft, len(drafts))
	copy(sorted, drafts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := parseDate(sorted[i].EffectiveFrom)
		b, bok := parseDate(sorted[j].EffectiveFrom)
		switch {
		case !aok && !bok:
			return false
		case !aok:
			return true
		case !bok:
			return false
		}
		return a.Before(b)
	})
	return sorted
}

// Ranges resolves ValidTo and IsCurrent for every draft with a valid
// effective_from, keyed by draft ID. today is YYYY-MM-DD.
func Ranges(drafts []Draft, today string) map[string]Range {
	var valid []Draft
	for _, d := range sortDrafts(drafts) {
		if _, ok := parseDate(d.EffectiveFrom); ok {
			valid = append(valid, d)
		}
	}
	todayDate, todayOK := parseDate(today)

	ranges := make(map[string]Range, len(valid))
	for i, d := range valid {
		validTo := d.EffectiveTo
		if validTo == "" && i+1 < len(valid) {
			next, _ := parseDate(valid[i+1].EffectiveFrom)
			validTo = next.AddDate(0, 0, -1).Format(dateLayout)
		}
		from, _ := parseDate(d.EffectiveFrom)
		r := Range{ValidTo: validTo}
		if todayOK && !from.After(todayDate) {
			to, hasTo := parseDate(validTo)
			r.IsCurrent = !hasTo || !todayDate.After(to)
		}
		ranges[d.ID] = r
	}
	return ranges
}
