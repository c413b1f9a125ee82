package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// condition is a parsed rule expression of the form "field op value".
//
// Supported fields:
//
//	general_rank          mean of the store's rank columns, type table
//	company_general_rank  the same within the company table
//	result                evaluation label of general_rank (== and != only)
//	<metric>_rank         any rank column of the type table
//	<metric>              any value column of the type table
//
// Examples: "general_rank < 0.3", "rating_rank <= 0.2", "result == Poor".
type condition struct {
	field     string
	op        string
	threshold float64
	label     types.Label
}

func parseCondition(expr string) (condition, error) {
	parts := strings.Fields(expr)
	if len(parts) < 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	c := condition{field: parts[0], op: parts[1]}
	rhs := strings.Join(parts[2:], " ")

	if c.field == "result" {
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("condition %q: result supports == and != only", expr)
		}
		c.label = types.Label(rhs)
		return c, nil
	}
	switch c.op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, c.op)
	}
	v, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: %w", expr, err)
	}
	c.threshold = v
	return c, nil
}

// storeFacts is what a condition can look at for one store.
type storeFacts struct {
	ds     *table.Dataset
	store  string
	latest types.Period
	row    int
	th     engine.Thresholds
}

func (f storeFacts) numeric(field string) option.Option[float64] {
	switch field {
	case "general_rank":
		return engine.GeneralRank(f.ds.Type, f.store, f.latest)
	case "company_general_rank":
		return engine.GeneralRank(f.ds.Company, f.store, f.latest)
	}
	if !f.ds.Type.HasColumn(field) {
		return option.None[float64]()
	}
	return f.ds.Type.Value(f.row, field)
}

// eval reports whether the condition fires for the store, and the value that
// made it fire. A missing value never fires.
func (c condition) eval(f storeFacts) (bool, float64) {
	if c.field == "result" {
		ev := engine.Evaluate(f.numeric("general_rank"), f.th)
		match := ev.Result == c.label
		if c.op == "!=" {
			match = !match
		}
		return match, ev.Rank
	}
	v, ok := f.numeric(c.field).Unpack()
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
