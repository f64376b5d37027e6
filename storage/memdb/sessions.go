package memdb

import (
	"context"

	"github.com/darasa/portal/core/identity"
)

type sessionStore struct {
	db *sessionTable
}

var _ identity.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(db *DB) *sessionStore {
	return &sessionStore{db: db.sessions}
}

func (store *sessionStore) GetSession(ctx context.Context, id string) (identity.Session, error) {
	store.db.RLock()
	sess, ok := store.db.table[id]
	store.db.RUnlock()

	if !ok {
		return identity.Session{}, identity.ErrSessionNotFound
	}
	if sess.IsExpired() {
		_ = store.DeleteSession(ctx, id)
		return identity.Session{}, identity.ErrSessionNotFound
	}
	return *sess, nil
}

func (store *sessionStore) SaveSession(ctx context.Context, sess identity.Session) error {
	store.db.Lock()
	defer store.db.Unlock()
	store.db.table[sess.ID] = &sess
	return nil
}

func (store *sessionStore) DeleteSession(ctx context.Context, id string) error {
	store.db.Lock()
	defer store.db.Unlock()
	delete(store.db.table, id)
	return nil
}

func (store *sessionStore) QueryAllSessions(ctx context.Context) ([]identity.Session, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	sessions := make([]identity.Session, 0, len(store.db.table))
	for _, sess := range store.db.table {
		if !sess.IsExpired() {
			sessions = append(sessions, *sess)
		}
	}
	return sessions, nil
}
