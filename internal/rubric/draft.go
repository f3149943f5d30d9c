package rubric

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports a rejected rubric field before it enters the model.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rubric: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Draft is the mutable, in-progress form of a rubric. Nothing is checked
// until Build, which returns the immutable Rubric or a ValidationError.
type Draft struct {
	ID            string             `json:"id,omitempty"`
	Name          string             `json:"name"`
	ScoringMode   ScoringMode        `json:"scoring_mode"`
	GradingMethod GradingMethod      `json:"grading_method"`
	Columns       []Column           `json:"columns"`
	Rows          []Row              `json:"rows"`
	Criteria      []CriteriaCell     `json:"criteria,omitempty"`
	Thresholds    []Threshold        `json:"thresholds,omitempty"`
	GoalRules     []LearningGoalRule `json:"goal_rules,omitempty"`
}

// Build validates the draft and freezes it into a Rubric. Thresholds come
// out sorted by ascending Min. Missing ids are generated.
func (d Draft) Build() (Rubric, error) {
	if d.Name == "" {
		return Rubric{}, invalid("name", "required")
	}
	mode := d.ScoringMode
	if mode == "" {
		mode = ScoringDiscrete
	}
	if mode != ScoringDiscrete && mode != ScoringCumulative {
		return Rubric{}, invalid("scoring_mode", "unknown mode %q", mode)
	}
	method := d.GradingMethod
	if method == "" {
		method = MethodPoints
	}
	if method != MethodPoints && method != MethodMastery {
		return Rubric{}, invalid("grading_method", "unknown method %q", method)
	}

	if len(d.Columns) == 0 {
		return Rubric{}, invalid("columns", "at least one column required")
	}
	colIDs := map[string]bool{}
	cols := make([]Column, len(d.Columns))
	for i, c := range d.Columns {
		if c.Points < 0 {
			return Rubric{}, invalid("columns", "column %q has negative points", c.Name)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if colIDs[c.ID] {
			return Rubric{}, invalid("columns", "duplicate column id %q", c.ID)
		}
		colIDs[c.ID] = true
		cols[i] = c
	}

	if len(d.Rows) == 0 {
		return Rubric{}, invalid("rows", "at least one row required")
	}
	rowIDs := map[string]bool{}
	rows := make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		if r.MaxPoints < 0 {
			return Rubric{}, invalid("rows", "row %q has negative max points", r.Name)
		}
		if r.CalculationPoints < 0 {
			return Rubric{}, invalid("rows", "row %q has negative calculation points", r.Name)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if rowIDs[r.ID] {
			return Rubric{}, invalid("rows", "duplicate row id %q", r.ID)
		}
		rowIDs[r.ID] = true
		rows[i] = r
	}

	for _, c := range d.Criteria {
		if !rowIDs[c.RowID] {
			return Rubric{}, invalid("criteria", "unknown row id %q", c.RowID)
		}
		if !colIDs[c.ColumnID] {
			return Rubric{}, invalid("criteria", "unknown column id %q", c.ColumnID)
		}
	}

	ths := make([]Threshold, len(d.Thresholds))
	copy(ths, d.Thresholds)
	sort.SliceStable(ths, func(i, j int) bool { return ths[i].Min < ths[j].Min })
	for i, t := range ths {
		if t.Min < 0 {
			return Rubric{}, invalid("thresholds", "threshold %q has negative min", t.Label)
		}
		if t.Max != nil && *t.Max < t.Min {
			return Rubric{}, invalid("thresholds", "threshold %q has max below min", t.Label)
		}
		if t.Status.Rank() == 0 {
			return Rubric{}, invalid("thresholds", "threshold %q has unknown status %q", t.Label, t.Status)
		}
		if i > 0 {
			prev := ths[i-1]
			if prev.Max == nil || t.Min <= *prev.Max {
				return Rubric{}, invalid("thresholds", "threshold %q overlaps %q", t.Label, prev.Label)
			}
		}
	}
	if method == MethodPoints && len(ths) == 0 {
		return Rubric{}, invalid("thresholds", "points rubric requires at least one threshold")
	}

	rules := make([]LearningGoalRule, len(d.GoalRules))
	for i, g := range d.GoalRules {
		if g.LearningGoal == "" {
			return Rubric{}, invalid("goal_rules", "rule %d missing learning goal", i)
		}
		if g.Threshold < 1 {
			return Rubric{}, invalid("goal_rules", "rule %q needs threshold >= 1", g.LearningGoal)
		}
		if g.MinConditions < 0 || g.MinConditions > len(g.ExtraConditions) {
			return Rubric{}, invalid("goal_rules", "rule %q min conditions out of range", g.LearningGoal)
		}
		if g.Status == "" {
			g.Status = StatusMastered
		}
		if g.Status.Rank() == 0 {
			return Rubric{}, invalid("goal_rules", "rule %q has unknown status %q", g.LearningGoal, g.Status)
		}
		rules[i] = g
	}
	if method == MethodMastery && len(rules) == 0 {
		return Rubric{}, invalid("goal_rules", "mastery rubric requires at least one rule")
	}

	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	return Rubric{
		ID:            id,
		Name:          d.Name,
		ScoringMode:   mode,
		GradingMethod: method,
		Columns:       cols,
		Rows:          rows,
		Criteria:      append([]CriteriaCell(nil), d.Criteria...),
		Thresholds:    ths,
		GoalRules:     rules,
		CreatedAt:     time.Now().UnixMilli(),
	}, nil
}
