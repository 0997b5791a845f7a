package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"casework/internal/db"
)

// Execer is satisfied by *sql.Tx and *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Audit event types.
const (
	FamilyRegistered    = "family.registered"
	FamilyStatusChanged = "family.status_changed"
	FamilyAssigned      = "family.assigned"
	AttendanceLogged    = "attendance.logged"
	VisitCreated        = "visit.created"
	VisitStatusChanged  = "visit.status_changed"
	TaskCreated         = "task.created"
	TaskStatusChanged   = "task.status_changed"
	UserCreated         = "user.created"
	APIKeyCreated       = "api_key.created"
	ReportExported      = "report.exported"
	ConfigImported      = "config.imported"
	MemberInsertFailed  = "family.members_failed"
)

type Writer struct {
	Dialect db.Dialect
	Now     func() time.Time
}

type EventPayload map[string]any

// Append records an audit event through ex, usually the caller's transaction.
func (w Writer) Append(ctx context.Context, ex Execer, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if actorID == "" {
		actorID = "system"
	}
	_, err = ex.ExecContext(ctx, db.Rebind(w.Dialect, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`),
		ts, evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
