package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

type auditLog struct {
	db *sqlx.DB
}

var _ identity.AuditLog = (*auditLog)(nil) // interface compliance check

func NewAuditLog(db *sql.DB, conf *core.Config) *auditLog {
	return &auditLog{db: sqlx.NewDb(db, conf.Database.Engine)}
}

func (a auditLog) RecordEvent(ctx context.Context, evt identity.Event) error {
	const q = `
INSERT INTO auth_event (id, kind, role, subject, session_id, ip_address, user_agent, detail, created_at)
VALUES (:id, :kind, :role, :subject, :session_id, :ip_address, :user_agent, :detail, :created_at)`

	if _, err := a.db.NamedExecContext(ctx, q, evt); err != nil {
		return errors.Wrap(err, "recording auth event")
	}
	return nil
}

// QueryRecentEvents returns events newest first.
func (a auditLog) QueryRecentEvents(ctx context.Context, limit int) ([]identity.Event, error) {
	const q = `
SELECT id, kind, role, subject, session_id, ip_address, user_agent, detail, created_at
FROM auth_event
ORDER BY created_at DESC
LIMIT $1`

	events := make([]identity.Event, 0, limit)
	if err := a.db.SelectContext(ctx, &events, q, limit); err != nil {
		return nil, errors.Wrap(err, "querying auth events")
	}
	return events, nil
}
