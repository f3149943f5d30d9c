package result

import (
	"github.com/rubricly/rubricly/internal/grading"
	"github.com/rubricly/rubricly/internal/rubric"
)

// GradedStudent is the finalized, persisted record for one student. It is
// created once when a grading session finalizes and is immutable afterward
// except for feedback review edits.
type GradedStudent struct {
	ID                 string                 `json:"id"`
	RubricID           string                 `json:"rubric_id"`
	StudentName        string                 `json:"student_name"`
	ClassName          string                 `json:"class_name,omitempty"`
	Selections         map[string]string      `json:"selections"`
	RowScores          map[string]int         `json:"row_scores,omitempty"`
	CalculationCorrect map[string]bool        `json:"calculation_correct,omitempty"`
	ExtraConditionsMet []string               `json:"extra_conditions_met,omitempty"`
	CellFeedback       []grading.CellFeedback `json:"cell_feedback,omitempty"`
	GeneralFeedback    string                 `json:"general_feedback,omitempty"`
	TotalScore         int                    `json:"total_score"`
	Status             rubric.Status          `json:"status"`
	StatusLabel        string                 `json:"status_label"`
	GradedAt           int64                  `json:"graded_at"` // epoch ms
}

// Patch carries the only fields that may change after finalization.
type Patch struct {
	GeneralFeedback *string                `json:"general_feedback,omitempty"`
	CellFeedback    []grading.CellFeedback `json:"cell_feedback,omitempty"`
}
