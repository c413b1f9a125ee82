package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

var (
	// ErrInvalidMetric means the requested metric has no column in the table.
	ErrInvalidMetric = errors.New("invalid metric")

	// ErrInvalidEntity means a store or company id is unknown.
	ErrInvalidEntity = errors.New("invalid entity id")

	// ErrInvalidParameter means a numeric or enum parameter is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrComputation means the operation failed unexpectedly.
	ErrComputation = errors.New("computation fault")
)

// guard runs fn and converts a panic into ErrComputation so one malformed
// query cannot take the process down.
func guard[T any](op string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: computation fault",
				"op", op, "panic", r, "stack", string(debug.Stack()))
			var zero T
			out, err = zero, fmt.Errorf("%w: %s", ErrComputation, op)
		}
	}()
	return fn()
}

func invalidMetric(metric string) error {
	return fmt.Errorf("%w: %q", ErrInvalidMetric, metric)
}

func invalidStore(id string) error {
	return fmt.Errorf("%w: unknown store %q", ErrInvalidEntity, id)
}

func invalidCompany(id string) error {
	return fmt.Errorf("%w: unknown company %q", ErrInvalidEntity, id)
}
