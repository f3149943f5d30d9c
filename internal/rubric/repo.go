package rubric

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a rubric id does not exist.
var ErrNotFound = errors.New("rubric not found")

// Source is the read side the grading engine depends on. The engine never
// mutates a rubric definition.
type Source interface {
	Get(ctx context.Context, id string) (Rubric, error)
}

// Store is the full rubric repository used by the service surface.
type Store interface {
	Source
	Put(ctx context.Context, r Rubric) error
	List(ctx context.Context) ([]Rubric, error)
	Delete(ctx context.Context, id string) error
}
