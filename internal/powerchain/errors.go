package powerchain

import (
	"errors"
	"fmt"
)

// ErrConflict indicates two propagation signals converged on one part within
// a single drive stage, either through a cycle or through two drivers.
var ErrConflict = errors.New("powerchain: structural conflict")

// ConflictError describes a detected conflict. It is handed to
// Hooks.OnConflict and is never returned from core operations.
type ConflictError struct {
	Part       string
	Kind       Kind
	Generation uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("powerchain: %s %q reached twice in generation %d", e.Kind, e.Part, e.Generation)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
