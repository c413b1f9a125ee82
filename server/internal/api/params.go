package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/server/internal/engine"
)

// rankParam reads ?rank=. An absent rank or "null" evaluates as missing.
func rankParam(r *http.Request) (option.Option[float64], error) {
	raw := strings.TrimSpace(r.URL.Query().Get("rank"))
	switch strings.ToLower(raw) {
	case "", "null", "none", "nan":
		return option.None[float64](), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return option.None[float64](), fmt.Errorf("%w: rank must be a number, got %q", engine.ErrInvalidParameter, raw)
	}
	return option.Some(v), nil
}
