package memdb

import (
	"context"

	"github.com/darasa/portal/core/identity"
)

type auditLog struct {
	db *eventTable
}

var _ identity.AuditLog = (*auditLog)(nil) // interface compliance check

func NewAuditLog(db *DB) *auditLog {
	return &auditLog{db: db.events}
}

func (a *auditLog) RecordEvent(ctx context.Context, evt identity.Event) error {
	a.db.Lock()
	defer a.db.Unlock()
	a.db.rows = append(a.db.rows, evt)
	return nil
}

// QueryRecentEvents returns events newest first.
func (a *auditLog) QueryRecentEvents(ctx context.Context, limit int) ([]identity.Event, error) {
	a.db.RLock()
	defer a.db.RUnlock()

	events := make([]identity.Event, 0, limit)
	for i := len(a.db.rows) - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, a.db.rows[i])
	}
	return events, nil
}
