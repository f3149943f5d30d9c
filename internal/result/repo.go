package result

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a result id does not exist.
var ErrNotFound = errors.New("result not found")

// Store is the external result repository. The engine hands finalized
// records to it and treats failures as retryable by the caller; batch writes
// report partial success per student.
type Store interface {
	Create(ctx context.Context, gs GradedStudent) (string, error)
	List(ctx context.Context, rubricID string) ([]GradedStudent, error)
	Update(ctx context.Context, id string, p Patch) error
}
