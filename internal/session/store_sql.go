package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SQLStore persists one snapshot row per (rubric, class) key. The snapshot
// is a JSON document so schema evolution stays additive: unknown fields are
// ignored on load, missing optional fields default.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Save(ctx context.Context, key Key, st *State) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO grading_sessions (rubric_id,class_name,snapshot_json,saved_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (rubric_id,class_name) DO UPDATE SET snapshot_json=EXCLUDED.snapshot_json, saved_at=EXCLUDED.saved_at`,
		key.RubricID, key.ClassName, string(doc), st.SavedAt)
	return err
}

func (s *SQLStore) Load(ctx context.Context, key Key) (*State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot_json FROM grading_sessions WHERE rubric_id=$1 AND class_name=$2`,
		key.RubricID, key.ClassName)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLStore) Delete(ctx context.Context, key Key) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM grading_sessions WHERE rubric_id=$1 AND class_name=$2`,
		key.RubricID, key.ClassName)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
