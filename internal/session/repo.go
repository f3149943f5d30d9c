package session

import "context"

// Store persists session snapshots keyed by (rubricID, className). Load
// returns ErrNotFound for an absent key. A session is single-writer by
// design, so last write wins; no optimistic concurrency is needed.
type Store interface {
	Save(ctx context.Context, key Key, s *State) error
	Load(ctx context.Context, key Key) (*State, error)
	Delete(ctx context.Context, key Key) error
}
