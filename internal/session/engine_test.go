package session_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/rubricly/rubricly/internal/grading"
	"github.com/rubricly/rubricly/internal/result"
	"github.com/rubricly/rubricly/internal/rubric"
	"github.com/rubricly/rubricly/internal/session"
	syncx "github.com/rubricly/rubricly/internal/sync"
)

func intp(v int) *int { return &v }

// fakeClock hands out timestamps one second apart so completion times are
// distinguishable and deterministic.
type fakeClock struct{ ms int64 }

func (c *fakeClock) Now() time.Time {
	c.ms += 1000
	return time.UnixMilli(c.ms)
}

type failingResults struct {
	result.Store
	failFor string
}

func (f *failingResults) Create(ctx context.Context, gs result.GradedStudent) (string, error) {
	if gs.StudentName == f.failFor {
		return "", fmt.Errorf("backend unavailable")
	}
	return f.Store.Create(ctx, gs)
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) Append(context.Context, syncx.Event) error {
	f.calls++
	return errors.New("event log down")
}

func fixtureRubric(t *testing.T, mutate func(*rubric.Draft)) rubric.Rubric {
	t.Helper()
	d := rubric.Draft{
		ID:          "rub-1",
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
			{Min: 0, Max: intp(4), Status: rubric.StatusDevelopment, Label: "Development"},
			{Min: 5, Max: intp(9), Status: rubric.StatusMastered, Label: "Mastered"},
			{Min: 10, Max: intp(16), Status: rubric.StatusExpert, Label: "Expert"},
		},
	}
	if mutate != nil {
		mutate(&d)
	}
	r, err := d.Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return r
}

type harness struct {
	rubrics  rubric.Store
	sessions session.Store
	results  result.Store
	engine   *session.Engine
	clock    *fakeClock
	key      session.Key
}

func newHarness(t *testing.T, mutate func(*rubric.Draft), opts ...session.Option) *harness {
	t.Helper()
	h := &harness{
		rubrics:  rubric.NewInMemoryStore(),
		sessions: session.NewInMemoryStore(),
		results:  result.NewInMemoryStore(),
		clock:    &fakeClock{},
	}
	r := fixtureRubric(t, mutate)
	if err := h.rubrics.Put(context.Background(), r); err != nil {
		t.Fatalf("seed rubric: %v", err)
	}
	opts = append([]session.Option{session.WithClock(h.clock.Now)}, opts...)
	h.engine = session.NewEngine(h.rubrics, h.sessions, h.results, opts...)
	h.key = session.Key{RubricID: r.ID, ClassName: "7b"}
	return h
}

func (h *harness) start(t *testing.T, students ...string) *session.State {
	t.Helper()
	st, err := h.engine.Start(context.Background(), h.key.RubricID, h.key.ClassName, students)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return st
}

func (h *harness) advance(t *testing.T, edit session.CellEdit) *session.State {
	t.Helper()
	st, err := h.engine.Advance(context.Background(), h.key, edit)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	return st
}

func TestStartInitializesSession(t *testing.T) {
	h := newHarness(t, nil)
	st := h.start(t, "anna", "bo")

	if st.Phase != session.PhaseInProgress {
		t.Fatalf("want in_progress, got %s", st.Phase)
	}
	if st.CurrentRowIndex != 0 || st.CurrentStudentIndex != 0 {
		t.Fatalf("cursor not at origin: %d/%d", st.CurrentRowIndex, st.CurrentStudentIndex)
	}
	if st.StartTime == 0 || st.SavedAt == 0 {
		t.Fatalf("timestamps not stamped: %+v", st)
	}
	if len(st.Students) != 2 || st.Students["anna"] == nil {
		t.Fatalf("want empty accumulator per student, got %+v", st.Students)
	}
}

func TestStartRejectsDuplicateStudents(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.engine.Start(context.Background(), h.key.RubricID, h.key.ClassName, []string{"anna", "anna"})
	if !errors.Is(err, session.ErrInvalidEdit) {
		t.Fatalf("want ErrInvalidEdit, got %v", err)
	}
}

func TestStartRejectsSecondActiveSession(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna")
	_, err := h.engine.Start(context.Background(), h.key.RubricID, h.key.ClassName, []string{"bo"})
	if !errors.Is(err, session.ErrActiveSession) {
		t.Fatalf("want ErrActiveSession, got %v", err)
	}
}

func TestHorizontalTraversalTwoByTwo(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna", "bo")

	// Row 1: both students.
	st := h.advance(t, session.CellEdit{ColumnID: "c5"})
	if st.CurrentRowIndex != 0 || st.CurrentStudentIndex != 1 {
		t.Fatalf("after 1st advance: cursor %d/%d", st.CurrentRowIndex, st.CurrentStudentIndex)
	}
	st = h.advance(t, session.CellEdit{ColumnID: "c2"})
	if st.CurrentRowIndex != 1 || st.CurrentStudentIndex != 0 {
		t.Fatalf("after row 1: cursor %d/%d", st.CurrentRowIndex, st.CurrentStudentIndex)
	}
	if len(st.RowCompletionTimes) != 1 {
		t.Fatalf("want 1 row completion, got %d", len(st.RowCompletionTimes))
	}

	// Row 2: both students, completing the session.
	st = h.advance(t, session.CellEdit{ColumnID: "c8"})
	st = h.advance(t, session.CellEdit{ColumnID: "c8"})

	if st.Phase != session.PhaseCompleted {
		t.Fatalf("want completed after 4 advances, got %s", st.Phase)
	}
	if len(st.RowCompletionTimes) != 2 {
		t.Fatalf("want 2 row completions, got %d", len(st.RowCompletionTimes))
	}
	if len(st.StudentCompletionTimes) != 2 {
		t.Fatalf("want 2 student completions, got %d", len(st.StudentCompletionTimes))
	}
	if st.Students["anna"].Selections["r1"] != "c5" || st.Students["bo"].Selections["r2"] != "c8" {
		t.Fatalf("selections landed on wrong cells: %+v", st.Students)
	}

	_, err := h.engine.Advance(context.Background(), h.key, session.CellEdit{ColumnID: "c2"})
	if !errors.Is(err, session.ErrCompleted) {
		t.Fatalf("want ErrCompleted, got %v", err)
	}
}

func TestAdvanceRejectsBadEdits(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna")

	if _, err := h.engine.Advance(context.Background(), h.key, session.CellEdit{ColumnID: "ghost"}); !errors.Is(err, session.ErrInvalidEdit) {
		t.Fatalf("unknown column: want ErrInvalidEdit, got %v", err)
	}
	if _, err := h.engine.Advance(context.Background(), h.key, session.CellEdit{RowScore: intp(-1)}); !errors.Is(err, session.ErrInvalidEdit) {
		t.Fatalf("negative score: want ErrInvalidEdit, got %v", err)
	}
	if _, err := h.engine.Advance(context.Background(), h.key, session.CellEdit{}); !errors.Is(err, session.ErrInvalidEdit) {
		t.Fatalf("empty edit: want ErrInvalidEdit, got %v", err)
	}
}

func TestAdvanceAutosavesSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna", "bo")
	st := h.advance(t, session.CellEdit{ColumnID: "c5", Comment: "solid opening"})

	loaded, err := h.sessions.Load(context.Background(), h.key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(st, loaded) {
		t.Fatalf("snapshot round-trip mismatch:\nsaved:  %+v\nloaded: %+v", st, loaded)
	}
	if loaded.SavedAt <= loaded.StartTime {
		t.Fatalf("SavedAt not advanced: %d <= %d", loaded.SavedAt, loaded.StartTime)
	}
	fb := loaded.Students["anna"].CellFeedback
	if len(fb) != 1 || fb[0].Comment != "solid opening" {
		t.Fatalf("cell feedback lost in autosave: %+v", fb)
	}
}

func TestResumeRestoresStateVerbatim(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna", "bo")
	want := h.advance(t, session.CellEdit{ColumnID: "c5"})

	got, warns, err := h.engine.Resume(context.Background(), h.key)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("resume mismatch:\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestResumePrunesStaleReferences(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna", "bo")
	h.advance(t, session.CellEdit{ColumnID: "c5"})
	h.advance(t, session.CellEdit{ColumnID: "c2"})

	// The rubric loses its lowest column while the session is parked.
	edited := fixtureRubric(t, func(d *rubric.Draft) {
		d.Columns = d.Columns[1:] // drop c2
	})
	if err := h.rubrics.Put(context.Background(), edited); err != nil {
		t.Fatalf("put edited rubric: %v", err)
	}

	st, warns, err := h.engine.Resume(context.Background(), h.key)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(warns) != 1 || warns[0].Kind != grading.WarnStaleRef {
		t.Fatalf("want one stale-ref warning, got %v", warns)
	}
	if _, ok := st.Students["bo"].Selections["r1"]; ok {
		t.Fatalf("stale selection must be dropped, got %+v", st.Students["bo"].Selections)
	}
	if st.Students["anna"].Selections["r1"] != "c5" {
		t.Fatalf("valid selection must survive pruning")
	}

	// The pruned snapshot is what persists.
	loaded, err := h.sessions.Load(context.Background(), h.key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := loaded.Students["bo"].Selections["r1"]; ok {
		t.Fatalf("pruned snapshot not saved")
	}
}

func TestCancelDiscardsSnapshotWithoutResults(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna")
	h.advance(t, session.CellEdit{ColumnID: "c8"})

	if err := h.engine.Cancel(context.Background(), h.key); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, _, err := h.engine.Resume(context.Background(), h.key); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("want ErrNotFound after cancel, got %v", err)
	}
	res, err := h.results.List(context.Background(), h.key.RubricID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("cancel must not emit results, got %d", len(res))
	}
}

func TestFinalizeEmitsOneRecordPerStudent(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna", "bo")
	h.advance(t, session.CellEdit{ColumnID: "c5"})
	h.advance(t, session.CellEdit{ColumnID: "c2"})
	h.advance(t, session.CellEdit{ColumnID: "c8", GeneralFeedback: strp("nice work")})
	h.advance(t, session.CellEdit{ColumnID: "c5"})

	rep, err := h.engine.Finalize(context.Background(), h.key)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(rep.Created) != 2 || len(rep.Failed) != 0 {
		t.Fatalf("want 2 created / 0 failed, got %d/%d", len(rep.Created), len(rep.Failed))
	}

	byName := map[string]result.GradedStudent{}
	for _, gs := range rep.Created {
		byName[gs.StudentName] = gs
	}
	anna := byName["anna"]
	if anna.TotalScore != 13 || anna.Status != rubric.StatusExpert || anna.StatusLabel != "Expert" {
		t.Fatalf("anna graded wrong: %+v", anna)
	}
	if anna.GeneralFeedback != "nice work" {
		t.Fatalf("general feedback lost: %+v", anna)
	}
	bo := byName["bo"]
	if bo.TotalScore != 7 || bo.Status != rubric.StatusMastered {
		t.Fatalf("bo graded wrong: %+v", bo)
	}
	if anna.ClassName != "7b" || anna.GradedAt == 0 {
		t.Fatalf("record not stamped: %+v", anna)
	}

	stored, err := h.results.List(context.Background(), h.key.RubricID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("want 2 persisted results, got %d", len(stored))
	}
}

func TestFinalizeIsNotReentrant(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna")
	h.advance(t, session.CellEdit{ColumnID: "c5"})
	h.advance(t, session.CellEdit{ColumnID: "c8"})

	if _, err := h.engine.Finalize(context.Background(), h.key); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	_, err := h.engine.Finalize(context.Background(), h.key)
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("second finalize must find no session, got %v", err)
	}
	stored, _ := h.results.List(context.Background(), h.key.RubricID)
	if len(stored) != 1 {
		t.Fatalf("second finalize must not re-emit, got %d records", len(stored))
	}
}

func TestFinalizeRequiresCompletedSession(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, "anna")
	h.advance(t, session.CellEdit{ColumnID: "c5"})

	_, err := h.engine.Finalize(context.Background(), h.key)
	if !errors.Is(err, session.ErrNotCompleted) {
		t.Fatalf("want ErrNotCompleted, got %v", err)
	}
}

func TestFinalizeReportsPartialFailureAndKeepsSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	h.engine = session.NewEngine(h.rubrics, h.sessions,
		&failingResults{Store: h.results, failFor: "bo"},
		session.WithClock(h.clock.Now))
	h.start(t, "anna", "bo")
	h.advance(t, session.CellEdit{ColumnID: "c5"})
	h.advance(t, session.CellEdit{ColumnID: "c2"})
	h.advance(t, session.CellEdit{ColumnID: "c8"})
	h.advance(t, session.CellEdit{ColumnID: "c5"})

	rep, err := h.engine.Finalize(context.Background(), h.key)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(rep.Created) != 1 || len(rep.Failed) != 1 {
		t.Fatalf("want 1 created / 1 failed, got %d/%d", len(rep.Created), len(rep.Failed))
	}
	var se *session.StoreError
	if !errors.As(rep.Failed["bo"], &se) || se.Op != "create_result" {
		t.Fatalf("want wrapped StoreError for bo, got %v", rep.Failed["bo"])
	}
	// Snapshot survives so the caller can retry the failed student.
	if _, _, err := h.engine.Resume(context.Background(), h.key); err != nil {
		t.Fatalf("snapshot must survive partial failure: %v", err)
	}
}

func TestEventLogFailureNeverBlocksGrading(t *testing.T) {
	rec := &failingRecorder{}
	h := newHarness(t, nil, session.WithEventLog(rec))
	h.start(t, "anna")
	h.advance(t, session.CellEdit{ColumnID: "c8"})

	if rec.calls == 0 {
		t.Fatalf("recorder never invoked")
	}
}

func TestRowScoreEditOnExamStyleRow(t *testing.T) {
	h := newHarness(t, func(d *rubric.Draft) {
		d.Rows = []rubric.Row{{ID: "re", Name: "Exam part", MaxPoints: 10}}
	})
	h.start(t, "anna")
	st := h.advance(t, session.CellEdit{RowScore: intp(9), CalculationCorrect: boolp(true)})

	if st.Phase != session.PhaseCompleted {
		t.Fatalf("single cell rubric should complete, got %s", st.Phase)
	}
	if st.Students["anna"].RowScores["re"] != 9 {
		t.Fatalf("row score not recorded: %+v", st.Students["anna"])
	}
	if !st.Students["anna"].CalculationCorrect["re"] {
		t.Fatalf("calculation mark not recorded")
	}
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }
