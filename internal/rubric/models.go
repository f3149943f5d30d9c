package rubric

// ScoringMode controls how a rubric's total possible points are derived.
type ScoringMode string

const (
	// ScoringDiscrete scores each row as exactly one column's point value.
	ScoringDiscrete ScoringMode = "discrete"
	// ScoringCumulative treats column points as additive contributions.
	ScoringCumulative ScoringMode = "cumulative"
)

// GradingMethod selects how a numeric score maps to a status.
type GradingMethod string

const (
	MethodPoints  GradingMethod = "points"
	MethodMastery GradingMethod = "mastery"
)

// Status is the qualitative outcome of grading one student.
type Status string

const (
	StatusDevelopment Status = "development"
	StatusMastered    Status = "mastered"
	StatusExpert      Status = "expert"
)

// Rank orders statuses: development < mastered < expert. Unknown values
// rank below development so they never win a "coarsest status" comparison.
func (s Status) Rank() int {
	switch s {
	case StatusDevelopment:
		return 1
	case StatusMastered:
		return 2
	case StatusExpert:
		return 3
	default:
		return 0
	}
}

// Column is one performance level. Points meaning depends on the scoring mode.
type Column struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Row is one assessed item. Exam-style rows carry MaxPoints and take their
// score from an explicit entry instead of a column pick.
type Row struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsBonus           bool   `json:"is_bonus,omitempty"`
	CalculationPoints int    `json:"calculation_points,omitempty"`
	MaxPoints         int    `json:"max_points,omitempty"`
	LearningGoal      string `json:"learning_goal,omitempty"`
	Description       string `json:"description,omitempty"`
}

// CriteriaCell is the descriptive text for one (row, column) pair.
type CriteriaCell struct {
	RowID       string `json:"row_id"`
	ColumnID    string `json:"column_id"`
	Description string `json:"description"`
}

// Threshold maps a contiguous score range to a status. Max nil means
// open-ended. RequiresNoLowest additionally demands zero selections in the
// lowest-point column across non-bonus rows.
type Threshold struct {
	Min              int    `json:"min"`
	Max              *int   `json:"max"`
	Status           Status `json:"status"`
	Label            string `json:"label"`
	RequiresNoLowest bool   `json:"requires_no_lowest,omitempty"`
}

// Contains reports whether score falls inside the threshold's range.
func (t Threshold) Contains(score int) bool {
	return t.Min <= score && (t.Max == nil || score <= *t.Max)
}

// LearningGoalRule grants Status when at least Threshold rows tagged with
// LearningGoal are correct and at least MinConditions of ExtraConditions are
// met. MinConditions zero means all of them.
type LearningGoalRule struct {
	LearningGoal    string   `json:"learning_goal"`
	Threshold       int      `json:"threshold"`
	ExtraConditions []string `json:"extra_conditions,omitempty"`
	MinConditions   int      `json:"min_conditions,omitempty"`
	Status          Status   `json:"status"`
	Label           string   `json:"label"`
}

// Rubric is a finalized, validated definition. Construct via Draft.Build;
// consumers treat a Rubric value as immutable.
type Rubric struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	ScoringMode   ScoringMode        `json:"scoring_mode"`
	GradingMethod GradingMethod      `json:"grading_method"`
	Columns       []Column           `json:"columns"`
	Rows          []Row              `json:"rows"`
	Criteria      []CriteriaCell     `json:"criteria,omitempty"`
	Thresholds    []Threshold        `json:"thresholds,omitempty"`
	GoalRules     []LearningGoalRule `json:"goal_rules,omitempty"`
	CreatedAt     int64              `json:"created_at,omitempty"` // epoch ms
}

// ColumnByID returns the column with the given id.
func (r Rubric) ColumnByID(id string) (Column, bool) {
	for _, c := range r.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// RowByID returns the row with the given id.
func (r Rubric) RowByID(id string) (Row, bool) {
	for _, row := range r.Rows {
		if row.ID == id {
			return row, true
		}
	}
	return Row{}, false
}

// MaxColumnPoints is the highest point value across columns.
func (r Rubric) MaxColumnPoints() int {
	max := 0
	for _, c := range r.Columns {
		if c.Points > max {
			max = c.Points
		}
	}
	return max
}

// LowestColumn is the column with the smallest point value, used by the
// requires-no-lowest threshold predicate.
func (r Rubric) LowestColumn() (Column, bool) {
	if len(r.Columns) == 0 {
		return Column{}, false
	}
	low := r.Columns[0]
	for _, c := range r.Columns[1:] {
		if c.Points < low.Points {
			low = c
		}
	}
	return low, true
}

// NonBonusRowCount counts rows that participate in threshold classification.
func (r Rubric) NonBonusRowCount() int {
	n := 0
	for _, row := range r.Rows {
		if !row.IsBonus {
			n++
		}
	}
	return n
}

// TotalPossiblePoints is the derived denominator for classification.
// Discrete mode: best column times non-bonus row count. Cumulative mode: sum
// of all column points times non-bonus row count. Bonus and calculation
// points are added by the score calculator, never baked in here.
func (r Rubric) TotalPossiblePoints() int {
	rows := r.NonBonusRowCount()
	switch r.ScoringMode {
	case ScoringCumulative:
		sum := 0
		for _, c := range r.Columns {
			sum += c.Points
		}
		return sum * rows
	default:
		return r.MaxColumnPoints() * rows
	}
}

// CriterionFor returns the criteria text for a (row, column) pair.
func (r Rubric) CriterionFor(rowID, columnID string) (CriteriaCell, bool) {
	for _, c := range r.Criteria {
		if c.RowID == rowID && c.ColumnID == columnID {
			return c, true
		}
	}
	return CriteriaCell{}, false
}
