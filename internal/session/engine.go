package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rubricly/rubricly/internal/grading"
	"github.com/rubricly/rubricly/internal/result"
	"github.com/rubricly/rubricly/internal/rubric"
	syncx "github.com/rubricly/rubricly/internal/sync"
)

// ErrInvalidEdit signals a rejected cell edit (unknown column, negative
// score). Rejected at write time so callers can surface a validation error.
var ErrInvalidEdit = errors.New("invalid cell edit")

// CellEdit is the buffered edit committed by one Advance call. It applies
// to the session's current (row, student) cursor position. Exactly one of
// ColumnID or RowScore carries the score; the rest is optional annotation.
type CellEdit struct {
	ColumnID           string   `json:"column_id,omitempty"`
	RowScore           *int     `json:"row_score,omitempty"`
	CalculationCorrect *bool    `json:"calculation_correct,omitempty"`
	Comment            string   `json:"comment,omitempty"`
	GeneralFeedback    *string  `json:"general_feedback,omitempty"`
	ExtraConditionsMet []string `json:"extra_conditions_met,omitempty"`
}

// FinalizeReport is the per-student outcome of a batch finalize. The result
// store is not assumed atomic across the batch, so failures are reported
// per student and the snapshot is kept for retry until every write lands.
type FinalizeReport struct {
	Created  []result.GradedStudent `json:"created"`
	Failed   map[string]error       `json:"-"`
	Warnings grading.Warnings       `json:"warnings,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithEventLog attaches a best-effort event recorder.
func WithEventLog(rec syncx.Recorder) Option { return func(e *Engine) { e.events = rec } }

// Engine is the horizontal grading session state machine. It is the only
// stateful component: mutations are serialized per key so concurrent
// Advance/Finalize/Cancel calls on the same session never interleave. The
// engine surfaces store failures verbatim and never retries.
type Engine struct {
	rubrics  rubric.Source
	sessions Store
	results  result.Store
	events   syncx.Recorder
	now      func() time.Time

	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

func NewEngine(rubrics rubric.Source, sessions Store, results result.Store, opts ...Option) *Engine {
	e := &Engine{
		rubrics:  rubrics,
		sessions: sessions,
		results:  results,
		now:      time.Now,
		locks:    map[Key]*sync.Mutex{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) lock(key Key) func() {
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Start creates a fresh in-progress session for the key. The roster must be
// non-empty and free of duplicates, and no other session may be active for
// the same (rubric, class) pair.
func (e *Engine) Start(ctx context.Context, rubricID, className string, studentOrder []string) (*State, error) {
	key := Key{RubricID: rubricID, ClassName: className}
	defer e.lock(key)()

	if _, err := e.rubrics.Get(ctx, rubricID); err != nil {
		return nil, err
	}
	if len(studentOrder) == 0 {
		return nil, fmt.Errorf("%w: empty student order", ErrInvalidEdit)
	}
	seen := map[string]bool{}
	for _, name := range studentOrder {
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate student %q", ErrInvalidEdit, name)
		}
		seen[name] = true
	}

	if _, err := e.sessions.Load(ctx, key); err == nil {
		return nil, ErrActiveSession
	} else if !errors.Is(err, ErrNotFound) {
		return nil, &StoreError{Op: "load", Key: key, Err: err}
	}

	now := e.now().UnixMilli()
	st := &State{
		RubricID:               rubricID,
		ClassName:              className,
		Phase:                  PhaseInProgress,
		StudentOrder:           append([]string(nil), studentOrder...),
		Students:               make(map[string]*grading.StudentData, len(studentOrder)),
		StartTime:              now,
		RowCompletionTimes:     []int64{},
		StudentCompletionTimes: []int64{},
		SavedAt:                now,
	}
	for _, name := range studentOrder {
		st.Students[name] = grading.NewStudentData(name)
	}
	if err := e.sessions.Save(ctx, key, st); err != nil {
		return nil, &StoreError{Op: "save", Key: key, Err: err}
	}
	e.record(ctx, syncx.EventSessionSaved, key.String(), st)
	return st, nil
}

// Advance commits the buffered cell edit for the current (row, student) and
// moves the cursor to the next student in the row. Completing a row stamps
// RowCompletionTimes and moves to the next row; every commit within the
// final row stamps that student's completion. The snapshot is autosaved on
// every call so an interrupted session resumes at the last committed cell.
func (e *Engine) Advance(ctx context.Context, key Key, edit CellEdit) (*State, error) {
	defer e.lock(key)()

	st, err := e.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if st.Phase == PhaseCompleted {
		return nil, ErrCompleted
	}
	r, err := e.rubrics.Get(ctx, st.RubricID)
	if err != nil {
		return nil, err
	}
	if st.CurrentRowIndex >= len(r.Rows) {
		return nil, ErrCompleted
	}
	row := r.Rows[st.CurrentRowIndex]

	if err := validateEdit(r, row, edit); err != nil {
		return nil, err
	}

	name := st.CurrentStudent()
	d := st.Students[name]
	if d == nil {
		d = grading.NewStudentData(name)
		st.Students[name] = d
	}
	applyEdit(d, row, edit)

	now := e.now().UnixMilli()
	lastRow := st.CurrentRowIndex == len(r.Rows)-1
	if lastRow {
		st.StudentCompletionTimes = append(st.StudentCompletionTimes, now)
	}
	st.CurrentStudentIndex++
	if st.CurrentStudentIndex >= len(st.StudentOrder) {
		st.RowCompletionTimes = append(st.RowCompletionTimes, now)
		st.CurrentStudentIndex = 0
		st.CurrentRowIndex++
		if st.CurrentRowIndex >= len(r.Rows) {
			st.Phase = PhaseCompleted
		}
	}

	st.SavedAt = now
	if err := e.sessions.Save(ctx, key, st); err != nil {
		return nil, &StoreError{Op: "save", Key: key, Err: err}
	}
	e.record(ctx, syncx.EventSessionSaved, key.String(), st)
	return st, nil
}

// Resume loads the snapshot for a key and reconciles it against the current
// rubric: references to removed rows or columns are pruned with a warning
// instead of failing, and the cursor is clamped if the row set shrank.
func (e *Engine) Resume(ctx context.Context, key Key) (*State, grading.Warnings, error) {
	defer e.lock(key)()

	st, err := e.load(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	r, err := e.rubrics.Get(ctx, st.RubricID)
	if err != nil {
		return nil, nil, err
	}

	warns := pruneStale(r, st)
	if st.CurrentRowIndex > len(r.Rows) {
		st.CurrentRowIndex = len(r.Rows)
	}
	if st.CurrentRowIndex == len(r.Rows) && st.Phase == PhaseInProgress {
		st.Phase = PhaseCompleted
	}
	if st.CurrentStudentIndex >= len(st.StudentOrder) {
		st.CurrentStudentIndex = 0
	}

	if len(warns) > 0 {
		st.SavedAt = e.now().UnixMilli()
		if err := e.sessions.Save(ctx, key, st); err != nil {
			return nil, nil, &StoreError{Op: "save", Key: key, Err: err}
		}
	}
	return st, warns, nil
}

// Cancel aborts an in-flight session and discards the snapshot. No result
// records are created.
func (e *Engine) Cancel(ctx context.Context, key Key) error {
	defer e.lock(key)()

	if _, err := e.load(ctx, key); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, key); err != nil {
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	e.record(ctx, syncx.EventSessionCancelled, key.String(), nil)
	return nil
}

// Finalize scores every student in a completed session and hands the batch
// to the result store. Store failures are reported per student; the snapshot
// is discarded once every record lands, so a second Finalize finds no
// session and emits nothing.
func (e *Engine) Finalize(ctx context.Context, key Key) (*FinalizeReport, error) {
	defer e.lock(key)()

	st, err := e.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if st.Phase != PhaseCompleted {
		return nil, ErrNotCompleted
	}
	r, err := e.rubrics.Get(ctx, st.RubricID)
	if err != nil {
		return nil, err
	}

	rep := &FinalizeReport{Failed: map[string]error{}}
	rep.Warnings = pruneStale(r, st)

	now := e.now().UnixMilli()
	for _, name := range st.StudentOrder {
		d := st.Students[name]
		if d == nil {
			d = grading.NewStudentData(name)
		}
		score := grading.ComputeScore(r, d)
		out, warns := grading.ResolveStatus(r, score, d)
		rep.Warnings = append(rep.Warnings, warns...)

		gs := result.GradedStudent{
			ID:                 uuid.NewString(),
			RubricID:           st.RubricID,
			StudentName:        name,
			ClassName:          st.ClassName,
			Selections:         d.Selections,
			RowScores:          d.RowScores,
			CalculationCorrect: d.CalculationCorrect,
			ExtraConditionsMet: d.ExtraConditionsMet,
			CellFeedback:       d.CellFeedback,
			GeneralFeedback:    d.GeneralFeedback,
			TotalScore:         score,
			Status:             out.Status,
			StatusLabel:        out.Label,
			GradedAt:           now,
		}
		id, err := e.results.Create(ctx, gs)
		if err != nil {
			rep.Failed[name] = &StoreError{Op: "create_result", Key: key, Err: err}
			continue
		}
		gs.ID = id
		rep.Created = append(rep.Created, gs)
		e.record(ctx, syncx.EventResultCreated, id, gs)
	}

	if len(rep.Failed) > 0 {
		// Keep the snapshot so the caller can retry the failed students.
		return rep, nil
	}
	if err := e.sessions.Delete(ctx, key); err != nil {
		return rep, &StoreError{Op: "delete", Key: key, Err: err}
	}
	e.record(ctx, syncx.EventSessionFinalized, key.String(), rep)
	return rep, nil
}

func (e *Engine) load(ctx context.Context, key Key) (*State, error) {
	st, err := e.sessions.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "load", Key: key, Err: err}
	}
	return st, nil
}

func (e *Engine) record(ctx context.Context, typ, key string, payload interface{}) {
	if e.events == nil {
		return
	}
	data := ""
	if payload != nil {
		if buf, err := json.Marshal(payload); err == nil {
			data = string(buf)
		}
	}
	// Best effort: a failed append never blocks grading.
	_ = e.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: data})
}

func validateEdit(r rubric.Rubric, row rubric.Row, edit CellEdit) error {
	if edit.RowScore != nil {
		if *edit.RowScore < 0 {
			return fmt.Errorf("%w: negative row score %d", ErrInvalidEdit, *edit.RowScore)
		}
		return nil
	}
	if edit.ColumnID != "" {
		if _, ok := r.ColumnByID(edit.ColumnID); !ok {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidEdit, edit.ColumnID)
		}
		return nil
	}
	if edit.CalculationCorrect != nil || edit.GeneralFeedback != nil ||
		edit.Comment != "" || len(edit.ExtraConditionsMet) > 0 {
		return nil
	}
	return fmt.Errorf("%w: requires a column selection or row score", ErrInvalidEdit)
}

func applyEdit(d *grading.StudentData, row rubric.Row, edit CellEdit) {
	if edit.RowScore != nil {
		if d.RowScores == nil {
			d.RowScores = map[string]int{}
		}
		d.RowScores[row.ID] = *edit.RowScore
	} else if edit.ColumnID != "" {
		d.Selections[row.ID] = edit.ColumnID
	}
	if edit.CalculationCorrect != nil {
		if d.CalculationCorrect == nil {
			d.CalculationCorrect = map[string]bool{}
		}
		d.CalculationCorrect[row.ID] = *edit.CalculationCorrect
	}
	if edit.Comment != "" {
		d.CellFeedback = append(d.CellFeedback, grading.CellFeedback{
			RowID:    row.ID,
			ColumnID: edit.ColumnID,
			Comment:  edit.Comment,
		})
	}
	if edit.GeneralFeedback != nil {
		d.GeneralFeedback = *edit.GeneralFeedback
	}
	for _, c := range edit.ExtraConditionsMet {
		if !d.HasExtraCondition(c) {
			d.ExtraConditionsMet = append(d.ExtraConditionsMet, c)
		}
	}
}

// pruneStale drops references to rows and columns that no longer exist in
// the rubric. Stale data is removed, not silently kept, and each removal is
// surfaced as a warning.
func pruneStale(r rubric.Rubric, st *State) grading.Warnings {
	var warns grading.Warnings
	for name, d := range st.Students {
		if d == nil {
			continue
		}
		for rowID, colID := range d.Selections {
			if _, ok := r.RowByID(rowID); !ok {
				delete(d.Selections, rowID)
				warns.StaleReff("dropped selection for removed row %s (student %s)", rowID, name)
				continue
			}
			if _, ok := r.ColumnByID(colID); !ok {
				delete(d.Selections, rowID)
				warns.StaleReff("dropped selection for removed column %s (student %s)", colID, name)
			}
		}
		for rowID := range d.RowScores {
			if _, ok := r.RowByID(rowID); !ok {
				delete(d.RowScores, rowID)
				warns.StaleReff("dropped row score for removed row %s (student %s)", rowID, name)
			}
		}
		for rowID := range d.CalculationCorrect {
			if _, ok := r.RowByID(rowID); !ok {
				delete(d.CalculationCorrect, rowID)
				warns.StaleReff("dropped calculation mark for removed row %s (student %s)", rowID, name)
			}
		}
		kept := d.CellFeedback[:0]
		for _, fb := range d.CellFeedback {
			if _, ok := r.RowByID(fb.RowID); ok {
				kept = append(kept, fb)
			} else {
				warns.StaleReff("dropped feedback for removed row %s (student %s)", fb.RowID, name)
			}
		}
		d.CellFeedback = kept
	}
	return warns
}
