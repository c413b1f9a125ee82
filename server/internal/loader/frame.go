package loader

import (
	"strconv"
	"strings"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

var nullTokens = []string{"", "NA", "NaN", "nan", "null", "NULL", "None"}

// textColumns are never converted to numbers, even when they look numeric.
var textColumns = map[string]bool{
	table.ColStoreID:   true,
	table.ColCompany:   true,
	table.ColStoreType: true,
	table.ColPeriod:    true,
}

// rawColumn collects one column's cells as text before typing.
type rawColumn struct {
	name  string
	vals  []string
	valid []bool
}

func (c *rawColumn) append(v string, ok bool) {
	c.vals = append(c.vals, v)
	c.valid = append(c.valid, ok)
}

// typed converts the column to numeric when every non-null cell parses as a
// float, and keeps it as text otherwise.
func (c *rawColumn) typed() table.Column {
	if !textColumns[c.name] {
		nums := make([]option.Option[float64], len(c.vals))
		numeric := true
		for i, v := range c.vals {
			if !c.valid[i] {
				nums[i] = option.None[float64]()
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				numeric = false
				break
			}
			nums[i] = option.Some(f)
		}
		if numeric {
			return table.NumberColumn(c.name, nums...)
		}
	}
	text := make([]string, len(c.vals))
	for i, v := range c.vals {
		if c.valid[i] {
			text[i] = v
		}
	}
	return table.TextColumn(c.name, text...)
}

func buildFrame(cols []*rawColumn) (*table.Frame, error) {
	out := make([]table.Column, len(cols))
	for i, c := range cols {
		out[i] = c.typed()
	}
	return table.NewFrame(out...)
}
