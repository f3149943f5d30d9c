package rubric_test

import (
	"errors"
	"testing"

	"github.com/rubricly/rubricly/internal/rubric"
)

func intp(v int) *int { return &v }

func baseDraft() rubric.Draft {
	return rubric.Draft{
		Name:        "Essay rubric",
		ScoringMode: rubric.ScoringDiscrete,
		Columns: []rubric.Column{
			{ID: "c2", Name: "Basic", Points: 2},
			{ID: "c5", Name: "Good", Points: 5},
			{ID: "c8", Name: "Excellent", Points: 8},
		},
		Rows: []rubric.Row{
			{ID: "r1", Name: "Structure"},
			{ID: "r2", Name: "Argument"},
		},
		Thresholds: []rubric.Threshold{
			{Min: 10, Max: intp(16), Status: rubric.StatusExpert, Label: "Expert"},
			{Min: 0, Max: intp(4), Status: rubric.StatusDevelopment, Label: "Development"},
			{Min: 5, Max: intp(9), Status: rubric.StatusMastered, Label: "Mastered"},
		},
	}
}

func TestBuildSortsThresholdsAndKeepsIDs(t *testing.T) {
	r, err := baseDraft().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == "" {
		t.Fatalf("expected generated rubric id")
	}
	if r.Thresholds[0].Min != 0 || r.Thresholds[1].Min != 5 || r.Thresholds[2].Min != 10 {
		t.Fatalf("thresholds not sorted by min: %+v", r.Thresholds)
	}
	if _, ok := r.RowByID("r2"); !ok {
		t.Fatalf("expected provided row id to survive build")
	}
	if r.GradingMethod != rubric.MethodPoints {
		t.Fatalf("expected default grading method points, got %q", r.GradingMethod)
	}
}

func TestBuildRejectsBadDrafts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*rubric.Draft)
	}{
		{"negative column points", func(d *rubric.Draft) { d.Columns[0].Points = -1 }},
		{"duplicate row id", func(d *rubric.Draft) { d.Rows[1].ID = "r1" }},
		{"duplicate column id", func(d *rubric.Draft) { d.Columns[1].ID = "c2" }},
		{"no columns", func(d *rubric.Draft) { d.Columns = nil }},
		{"no rows", func(d *rubric.Draft) { d.Rows = nil }},
		{"threshold max below min", func(d *rubric.Draft) { d.Thresholds[0] = rubric.Threshold{Min: 10, Max: intp(5), Status: rubric.StatusExpert} }},
		{"overlapping thresholds", func(d *rubric.Draft) { d.Thresholds[2].Min = 3 }},
		{"negative threshold min", func(d *rubric.Draft) { d.Thresholds[1].Min = -1 }},
		{"unknown threshold status", func(d *rubric.Draft) { d.Thresholds[0].Status = "platinum" }},
		{"criteria unknown row", func(d *rubric.Draft) {
			d.Criteria = []rubric.CriteriaCell{{RowID: "nope", ColumnID: "c2", Description: "x"}}
		}},
		{"criteria unknown column", func(d *rubric.Draft) {
			d.Criteria = []rubric.CriteriaCell{{RowID: "r1", ColumnID: "nope", Description: "x"}}
		}},
		{"points rubric without thresholds", func(d *rubric.Draft) { d.Thresholds = nil }},
		{"negative row max points", func(d *rubric.Draft) { d.Rows[0].MaxPoints = -3 }},
		{"mastery without rules", func(d *rubric.Draft) { d.GradingMethod = rubric.MethodMastery }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := baseDraft()
			tc.mutate(&d)
			_, err := d.Build()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var ve *rubric.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestTotalPossiblePoints(t *testing.T) {
	d := baseDraft()
	r, err := d.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := r.TotalPossiblePoints(); got != 16 {
		t.Fatalf("discrete: want 16, got %d", got)
	}

	d.ScoringMode = rubric.ScoringCumulative
	r, err = d.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := r.TotalPossiblePoints(); got != 30 {
		t.Fatalf("cumulative: want (2+5+8)*2=30, got %d", got)
	}

	// Bonus rows never inflate the denominator.
	d.ScoringMode = rubric.ScoringDiscrete
	d.Rows = append(d.Rows, rubric.Row{ID: "rb", Name: "Bonus", IsBonus: true, MaxPoints: 3})
	r, err = d.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := r.TotalPossiblePoints(); got != 16 {
		t.Fatalf("with bonus row: want 16, got %d", got)
	}
}

func TestLowestColumn(t *testing.T) {
	r, err := baseDraft().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	low, ok := r.LowestColumn()
	if !ok || low.ID != "c2" {
		t.Fatalf("want lowest column c2, got %+v ok=%v", low, ok)
	}
}
