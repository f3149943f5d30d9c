package rubric

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SQLStore persists rubric definitions as a JSON document per row, the same
// shape the snapshot serialization uses on the wire.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, r Rubric) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO rubrics (id,name,def_json,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, def_json=EXCLUDED.def_json`,
		r.ID, r.Name, string(doc), r.CreatedAt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Rubric, error) {
	row := s.db.QueryRowContext(ctx, `SELECT def_json FROM rubrics WHERE id=$1`, id)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Rubric{}, ErrNotFound
		}
		return Rubric{}, err
	}
	var r Rubric
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return Rubric{}, err
	}
	return r, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Rubric, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT def_json FROM rubrics ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rubric
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var r Rubric
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rubrics WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
