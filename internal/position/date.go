package position

import (
	"fmt"
	"time"
)

// Date is a calendar date encoded as signed days since 1970-01-01, per
// DESIGN NOTES ("Date handling": Unicode- and timezone-independent,
// days-since-epoch). No calendar library in the example corpus offers this
// narrow a surface, so this wraps time.Time pinned to UTC midnight — see
// DESIGN.md for the standard-library justification.
type Date int32

const layout = "2006-01-02"

// epoch is 1970-01-01 UTC, the zero point for Date.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseDate parses a strict YYYY-MM-DD string into a Date. It rejects
// anything time.Parse would silently normalize (e.g. "2024-02-30" must
// round-trip exactly), satisfying the spec's "legal calendar date" rule for
// NER_DATE / SynonymTable DATE namespace input.
func ParseDate(s string) (Date, error) {
	if len(s) != len(layout) {
		return 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if t.Format(layout) != s {
		return 0, fmt.Errorf("invalid date %q: not a legal calendar date", s)
	}
	days := int64(t.Sub(epoch).Hours() / 24)
	return Date(days), nil
}

// MustParseDate is ParseDate for call sites (tests, fixtures) that already
// know the string is valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders the date back as YYYY-MM-DD.
func (d Date) String() string {
	t := epoch.AddDate(0, 0, int(d))
	return t.Format(layout)
}

// YYYYMMDD renders the date as an 8-digit key component, e.g. "20240101",
// the NER_DATE index key per spec §4.7.
func (d Date) YYYYMMDD() string {
	t := epoch.AddDate(0, 0, int(d))
	return t.Format("20060102")
}
