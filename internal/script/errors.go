package script

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned when a script names an action kind that
	// does not exist or is not allowed in the enclosing conversation kind.
	ErrUnknownAction = errors.New("script: unknown action")

	// ErrAuthoring is returned for script bugs: malformed actions,
	// out-of-range branch targets and runtime faults such as navigating back
	// from the first statement of an interrogation.
	ErrAuthoring = errors.New("script: authoring error")
)

// faultf returns an [ErrAuthoring] error for the action at index.
func faultf(index int, format string, args ...any) error {
	return fmt.Errorf("%w: action %d: %s", ErrAuthoring, index, fmt.Sprintf(format, args...))
}

// fault wraps err as an [ErrAuthoring] error for the action at index.
func fault(index int, err error) error {
	return fmt.Errorf("%w: action %d: %w", ErrAuthoring, index, err)
}
