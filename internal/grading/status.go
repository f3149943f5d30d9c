package grading

import "github.com/rubricly/rubricly/internal/rubric"

// Outcome is the qualitative result of one grading pass. Label comes from
// the resolved threshold or rule so the caller can localize it.
type Outcome struct {
	Status rubric.Status `json:"status"`
	Label  string        `json:"label"`
}

// ResolveStatus maps a computed score to a status. Points rubrics match the
// non-bonus subscore against threshold bands; mastery rubrics evaluate
// learning-goal rules instead. It never fails: configuration problems fall
// back to the lowest band and surface as warnings, because a grading pass
// must always complete.
func ResolveStatus(r rubric.Rubric, score int, d *StudentData) (Outcome, Warnings) {
	if r.GradingMethod == rubric.MethodMastery {
		return resolveMastery(r, d)
	}
	return resolveThresholds(r, score, d)
}

func resolveThresholds(r rubric.Rubric, score int, d *StudentData) (Outcome, Warnings) {
	var warns Warnings
	if len(r.Thresholds) == 0 {
		warns.Configf("rubric %s has no thresholds", r.ID)
		return Outcome{Status: rubric.StatusDevelopment}, warns
	}

	cs := classificationScore(r, score, d)

	// Thresholds are sorted by ascending Min at build time.
	idx := -1
	for i, t := range r.Thresholds {
		if t.Contains(cs) {
			idx = i
			break
		}
	}
	if idx < 0 {
		warns.Configf("score %d falls in a threshold gap, using lowest band", cs)
		idx = 0
	}

	if r.Thresholds[idx].RequiresNoLowest && hasLowestSelection(r, d) {
		// Demote one band; at the bottom there is nowhere lower to go.
		if idx > 0 {
			idx--
		}
	}

	t := r.Thresholds[idx]
	return Outcome{Status: t.Status, Label: t.Label}, warns
}

// hasLowestSelection reports whether any non-bonus row is selected in the
// lowest-point column.
func hasLowestSelection(r rubric.Rubric, d *StudentData) bool {
	if d == nil {
		return false
	}
	low, ok := r.LowestColumn()
	if !ok {
		return false
	}
	for _, row := range r.Rows {
		if row.IsBonus {
			continue
		}
		if d.Selections[row.ID] == low.ID {
			return true
		}
	}
	return false
}

// resolveMastery evaluates every learning-goal rule and returns the coarsest
// per-goal status: one unmet goal caps the overall result at development.
func resolveMastery(r rubric.Rubric, d *StudentData) (Outcome, Warnings) {
	var warns Warnings
	if len(r.GoalRules) == 0 {
		warns.Configf("mastery rubric %s has no goal rules", r.ID)
		return Outcome{Status: rubric.StatusDevelopment}, warns
	}

	overall := Outcome{Status: rubric.StatusExpert}
	ranked := false
	for _, rule := range r.GoalRules {
		tagged := 0
		correct := 0
		for _, row := range r.Rows {
			if row.LearningGoal != rule.LearningGoal {
				continue
			}
			tagged++
			if rowCorrect(r, row, d) {
				correct++
			}
		}
		if tagged == 0 {
			// Rule points at a goal no row carries: skip it, don't punish
			// the student for a configuration mistake.
			warns.Configf("goal rule %q tags no rows, skipped", rule.LearningGoal)
			continue
		}

		got := Outcome{Status: rule.Status, Label: rule.Label}
		if correct < rule.Threshold || !conditionsMet(rule, d) {
			got = Outcome{Status: rubric.StatusDevelopment, Label: rule.Label}
		}
		if !ranked || got.Status.Rank() < overall.Status.Rank() {
			overall = got
			ranked = true
		}
	}
	if !ranked {
		warns.Configf("mastery rubric %s has no evaluable rules", r.ID)
		return Outcome{Status: rubric.StatusDevelopment}, warns
	}
	return overall, warns
}

// conditionsMet checks the rule's extra conditions. MinConditions zero
// means every condition must be met.
func conditionsMet(rule rubric.LearningGoalRule, d *StudentData) bool {
	if len(rule.ExtraConditions) == 0 {
		return true
	}
	need := rule.MinConditions
	if need == 0 {
		need = len(rule.ExtraConditions)
	}
	met := 0
	for _, c := range rule.ExtraConditions {
		if d != nil && d.HasExtraCondition(c) {
			met++
		}
	}
	return met >= need
}
