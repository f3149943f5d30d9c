package session

import (
	"errors"
	"fmt"

	"github.com/rubricly/rubricly/internal/grading"
)

// Key scopes a session: at most one session may be active per key.
type Key struct {
	RubricID  string `json:"rubric_id"`
	ClassName string `json:"class_name"`
}

func (k Key) String() string { return k.RubricID + "/" + k.ClassName }

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// State is the resumable snapshot of one horizontal grading pass: all
// students for one row, then all students for the next. All timestamps are
// epoch milliseconds.
type State struct {
	RubricID               string                          `json:"rubric_id"`
	ClassName              string                          `json:"class_name"`
	Phase                  Phase                           `json:"phase"`
	StudentOrder           []string                        `json:"student_order"`
	CurrentRowIndex        int                             `json:"current_row_index"`
	CurrentStudentIndex    int                             `json:"current_student_index"`
	Students               map[string]*grading.StudentData `json:"students_data"`
	StartTime              int64                           `json:"start_time"`
	RowCompletionTimes     []int64                         `json:"row_completion_times"`
	StudentCompletionTimes []int64                         `json:"student_completion_times"`
	SavedAt                int64                           `json:"saved_at"`
}

// Key returns the store key this state is scoped to.
func (s *State) Key() Key { return Key{RubricID: s.RubricID, ClassName: s.ClassName} }

// CurrentStudent returns the student name at the cursor, or "" once the
// session is complete.
func (s *State) CurrentStudent() string {
	if s.CurrentStudentIndex >= len(s.StudentOrder) {
		return ""
	}
	return s.StudentOrder[s.CurrentStudentIndex]
}

var (
	// ErrNotFound signals an absent session snapshot for a key.
	ErrNotFound = errors.New("session not found")
	// ErrActiveSession signals that a session already exists for the key.
	ErrActiveSession = errors.New("session already active for key")
	// ErrNotCompleted signals Finalize on a session that has rows left.
	ErrNotCompleted = errors.New("session not completed")
	// ErrCompleted signals Advance on a session that is already done.
	ErrCompleted = errors.New("session already completed")
)

// StoreError wraps a session or result store failure with the operation and
// key involved. The engine surfaces it verbatim and never retries.
type StoreError struct {
	Op  string
	Key Key
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
