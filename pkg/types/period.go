package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Period is the canonical, lexically sortable form of a date_comment value.
// Dates and timestamps become YYYY-MM-DD, quarters become YYYYQn; anything
// else is kept trimmed as-is.
type Period string

// Latest is the query token that resolves to a table's most recent period.
const Latest = "latest"

var quarterRe = regexp.MustCompile(`^(\d{4})\s*[-_ ]?\s*[Qq]([1-4])$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2",
	"2006/1/2",
	"2006-1",
}

// ParsePeriod normalizes a raw date_comment cell.
func ParsePeriod(raw string) Period {
	s := strings.TrimSpace(raw)
	if m := quarterRe.FindStringSubmatch(s); m != nil {
		return Period(fmt.Sprintf("%sQ%s", m[1], m[2]))
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Period(t.Format("2006-01-02"))
		}
	}
	return Period(s)
}

func (p Period) String() string { return string(p) }
