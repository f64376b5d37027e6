package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Audit event kinds.
const (
	EventSignIn       = "sign_in"
	EventSignInFailed = "sign_in_failed"
	EventSignOut      = "sign_out"
	EventForcedLogout = "forced_logout"
)

// Event is one entry in the portal's auth trail.
type Event struct {
	ID        string      `db:"id" json:"id"`
	Kind      string      `db:"kind" json:"kind"`
	Role      string      `db:"role" json:"role"`
	Subject   string      `db:"subject" json:"subject"` // username or student code
	SessionID string      `db:"session_id" json:"session_id"`
	IPAddress string      `db:"ip_address" json:"ip_address"`
	UserAgent string      `db:"user_agent" json:"user_agent"`
	Detail    null.String `db:"detail" json:"detail"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"` // UTC
}

// AuditLog records portal auth events. Recording is best effort; callers
// log failures and move on.
type AuditLog interface {
	RecordEvent(ctx context.Context, evt Event) error
	QueryRecentEvents(ctx context.Context, limit int) ([]Event, error)
}

func newEventID() string {
	return uuid.New().String()
}
