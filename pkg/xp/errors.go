package xp

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the persistence layer could not be reached or
	// rejected the operation.
	ErrStoreUnavailable = errors.New("xp store unavailable")

	// ErrInvalidArgument is returned before any mutation for empty ids or a
	// negative amount on a grant-only path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned by write paths once the engine is shut down
	ErrClosed = errors.New("xp engine closed")
)

// storeError tags err as ErrStoreUnavailable while keeping the original cause
func storeError(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("xp: %s: %w", op, err)
	}
	return fmt.Errorf("xp: %s: %w: %w", op, ErrStoreUnavailable, err)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("xp: %w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
