package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a reference to an unknown mouse or population.
	ErrNotFound = errors.New("not found")

	// ErrComputation reports degenerate input to an engine computation,
	// e.g. a GRM over zero individuals or breeding incompatible genomes.
	ErrComputation = errors.New("computation failed")
)

// NotFoundError wraps ErrNotFound with the kind and identity of the missing resource.
func NotFoundError(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// ComputationError wraps ErrComputation with a formatted reason.
func ComputationError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrComputation)
}
