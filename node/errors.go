package node

import "errors"

var (
	// ErrNotFound means the id does not resolve to a live node.
	ErrNotFound = errors.New("not found")
	// ErrCycleDetected means a reparent would make a node its own ancestor.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrDepthExceeded means the family depth cap would be violated.
	ErrDepthExceeded   = errors.New("depth exceeded")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyExists is returned when a slug is held by another live node
	// of the same family and site.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict means a concurrent writer invalidated the operation. The
	// transaction was rolled back and the whole operation may be retried.
	ErrConflict = errors.New("conflict")
)

// Retryable reports whether err may be resolved by running the operation again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
