package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Grading event types appended by the session engine.
const (
	EventSessionSaved     = "SessionSaved"
	EventSessionCancelled = "SessionCancelled"
	EventSessionFinalized = "SessionFinalized"
	EventResultCreated    = "ResultCreated"
)

// Event is one append-only record of engine activity, used for offline sync
// and audit. Key is the natural key of the subject (session key or result id).
type Event struct {
	Offset    int64  `json:"offset"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Recorder is the append side; the engine records best-effort and never
// blocks grading on a failed append.
type Recorder interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Recent returns up to limit events newest-first, for sync and debugging.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT offset, site_id, typ, key, data, created_at FROM event_log
		 ORDER BY offset DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
