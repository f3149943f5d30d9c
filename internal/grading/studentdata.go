package grading

// CellFeedback is a free-text comment attached to one graded cell.
type CellFeedback struct {
	RowID    string `json:"row_id"`
	ColumnID string `json:"column_id,omitempty"`
	Comment  string `json:"comment"`
}

// StudentData is the per-student accumulator mutated while grading is in
// flight. It mirrors the persisted result record minus the derived
// score/status fields.
type StudentData struct {
	StudentName        string            `json:"student_name"`
	Selections         map[string]string `json:"selections"`           // rowID -> columnID
	RowScores          map[string]int    `json:"row_scores,omitempty"` // rowID -> explicit points
	CalculationCorrect map[string]bool   `json:"calculation_correct,omitempty"`
	ExtraConditionsMet []string          `json:"extra_conditions_met,omitempty"`
	CellFeedback       []CellFeedback    `json:"cell_feedback,omitempty"`
	GeneralFeedback    string            `json:"general_feedback,omitempty"`
}

// NewStudentData returns an empty accumulator for one student.
func NewStudentData(name string) *StudentData {
	return &StudentData{
		StudentName: name,
		Selections:  map[string]string{},
	}
}

// HasExtraCondition reports whether the named condition has been marked met.
func (d *StudentData) HasExtraCondition(name string) bool {
	for _, c := range d.ExtraConditionsMet {
		if c == name {
			return true
		}
	}
	return false
}
