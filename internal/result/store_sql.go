package result

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// SQLStore persists graded students with the searchable columns broken out
// and the full record as a JSON document, mirroring the rubric store.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, gs GradedStudent) (string, error) {
	if gs.ID == "" {
		gs.ID = uuid.NewString()
	}
	doc, err := json.Marshal(gs)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO grading_results
		(id,rubric_id,student_name,class_name,total_score,status,graded_at,data_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		gs.ID, gs.RubricID, gs.StudentName, gs.ClassName, gs.TotalScore, string(gs.Status), gs.GradedAt, string(doc))
	if err != nil {
		return "", err
	}
	return gs.ID, nil
}

func (s *SQLStore) List(ctx context.Context, rubricID string) ([]GradedStudent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data_json FROM grading_results WHERE rubric_id=$1 ORDER BY student_name`, rubricID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GradedStudent
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var gs GradedStudent
		if err := json.Unmarshal([]byte(doc), &gs); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *SQLStore) Update(ctx context.Context, id string, p Patch) error {
	row := s.db.QueryRowContext(ctx, `SELECT data_json FROM grading_results WHERE id=$1`, id)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var gs GradedStudent
	if err := json.Unmarshal([]byte(doc), &gs); err != nil {
		return err
	}
	if p.GeneralFeedback != nil {
		gs.GeneralFeedback = *p.GeneralFeedback
	}
	if p.CellFeedback != nil {
		gs.CellFeedback = p.CellFeedback
	}
	buf, err := json.Marshal(gs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE grading_results SET data_json=$1 WHERE id=$2`, string(buf), id)
	return err
}
