package grading

import "fmt"

// WarningKind classifies non-fatal grading diagnostics.
type WarningKind string

const (
	// WarnConfig flags a rubric configuration problem resolved via a
	// documented fallback (threshold gap, rule tagging no rows).
	WarnConfig WarningKind = "config"
	// WarnStaleRef flags a session reference to a row or column that no
	// longer exists in the rubric; the reference is pruned.
	WarnStaleRef WarningKind = "stale_ref"
)

// Warning is surfaced to the caller but never blocks a grading pass.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Kind, w.Message) }

type Warnings []Warning

func (ws *Warnings) addf(kind WarningKind, format string, args ...interface{}) {
	*ws = append(*ws, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Configf appends a configuration warning.
func (ws *Warnings) Configf(format string, args ...interface{}) {
	ws.addf(WarnConfig, format, args...)
}

// StaleReff appends a stale-reference warning.
func (ws *Warnings) StaleReff(format string, args ...interface{}) {
	ws.addf(WarnStaleRef, format, args...)
}
