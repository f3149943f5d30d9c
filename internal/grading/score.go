package grading

import "github.com/rubricly/rubricly/internal/rubric"

// ComputeScore resolves one student's cell data against the rubric and sums
// it into the raw total. It never fails: missing selections contribute zero
// so a partial grading pass still produces a defined score. Negative inputs
// are rejected at write time, before they reach this function.
func ComputeScore(r rubric.Rubric, d *StudentData) int {
	if d == nil {
		return 0
	}
	total := 0
	for _, row := range r.Rows {
		total += rowPoints(r, row, d)
		if row.CalculationPoints > 0 && d.CalculationCorrect[row.ID] {
			total += row.CalculationPoints
		}
	}
	if total < 0 {
		total = 0
	}
	return total
}

// classificationScore is the raw total minus bonus-row contributions. The
// status resolver matches this subscore against threshold ranges; bonus rows
// raise the total but never the band.
func classificationScore(r rubric.Rubric, score int, d *StudentData) int {
	if d == nil {
		return score
	}
	for _, row := range r.Rows {
		if !row.IsBonus {
			continue
		}
		score -= rowPoints(r, row, d)
		if row.CalculationPoints > 0 && d.CalculationCorrect[row.ID] {
			score -= row.CalculationPoints
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// rowPoints resolves one row's contribution. Exam-style rows take their
// explicit entry clamped to [0, MaxPoints]; everything else looks up the
// selected column. Stale column references resolve to zero.
func rowPoints(r rubric.Rubric, row rubric.Row, d *StudentData) int {
	if v, ok := d.RowScores[row.ID]; ok {
		if v < 0 {
			v = 0
		}
		if row.MaxPoints > 0 && v > row.MaxPoints {
			v = row.MaxPoints
		}
		return v
	}
	colID, ok := d.Selections[row.ID]
	if !ok {
		return 0
	}
	col, ok := r.ColumnByID(colID)
	if !ok {
		return 0
	}
	return col.Points
}

// rowCorrect reports whether a row counts toward its learning goal: either
// the top-point column was selected, or an exam-style entry reached the
// row's max points.
func rowCorrect(r rubric.Rubric, row rubric.Row, d *StudentData) bool {
	if v, ok := d.RowScores[row.ID]; ok {
		return row.MaxPoints > 0 && v >= row.MaxPoints
	}
	colID, ok := d.Selections[row.ID]
	if !ok {
		return false
	}
	col, ok := r.ColumnByID(colID)
	if !ok {
		return false
	}
	return col.Points == r.MaxColumnPoints()
}
