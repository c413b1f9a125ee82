package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/majewsky/gg/option"
)

// Column is one named column of a Frame. Exactly one of Text or Num is set.
type Column struct {
	Name string
	Text []string
	Num  []option.Option[float64]
}

// TextColumn returns a text column.
func TextColumn(name string, values ...string) Column {
	if values == nil {
		values = []string{}
	}
	return Column{Name: name, Text: values}
}

// NumberColumn returns a numeric column.
func NumberColumn(name string, values ...option.Option[float64]) Column {
	if values == nil {
		values = []option.Option[float64]{}
	}
	return Column{Name: name, Num: values}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Text != nil {
		return len(c.Text)
	}
	return len(c.Num)
}

// IsNumeric reports whether the column holds numbers.
func (c *Column) IsNumeric() bool { return c.Text == nil }

// TextAt returns cell i rendered as text. Null numbers render as "".
func (c *Column) TextAt(i int) string {
	if c.Text != nil {
		return c.Text[i]
	}
	if v, ok := c.Num[i].Unpack(); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// NumAt returns cell i as a number. Unparseable text and NaN are null.
func (c *Column) NumAt(i int) option.Option[float64] {
	var v float64
	if c.Num != nil {
		var ok bool
		if v, ok = c.Num[i].Unpack(); !ok {
			return option.None[float64]()
		}
	} else {
		var err error
		if v, err = strconv.ParseFloat(strings.TrimSpace(c.Text[i]), 64); err != nil {
			return option.None[float64]()
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return option.None[float64]()
	}
	return option.Some(v)
}

// Frame is a set of equally long columns, in source order.
type Frame struct {
	Columns []Column
}

// NewFrame assembles a Frame and checks that the columns line up.
func NewFrame(cols ...Column) (*Frame, error) {
	f := &Frame{Columns: cols}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	for i := range f.Columns {
		if f.Columns[i].Name == name {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

func (f *Frame) validate() error {
	seen := make(map[string]bool, len(f.Columns))
	n := f.Len()
	for i := range f.Columns {
		c := &f.Columns[i]
		if c.Name == "" {
			return fmt.Errorf("column %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Text != nil && c.Num != nil {
			return fmt.Errorf("column %q is both text and numeric", c.Name)
		}
		if c.Len() != n {
			return fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), n)
		}
	}
	return nil
}

func (f *Frame) require(names ...string) ([]*Column, error) {
	out := make([]*Column, len(names))
	for i, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		out[i] = c
	}
	return out, nil
}
