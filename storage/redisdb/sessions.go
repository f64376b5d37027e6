package redisdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/darasa/portal/core/identity"
)

const sessionKeyPrefix = "session:"

type sessionStore struct {
	rdb *redis.Client
}

var _ identity.SessionStore = (*sessionStore)(nil) // interface compliance check

func NewSessionStore(rdb *redis.Client) *sessionStore {
	return &sessionStore{rdb: rdb}
}

func (store sessionStore) GetSession(ctx context.Context, id string) (identity.Session, error) {
	b, err := store.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return identity.Session{}, identity.ErrSessionNotFound
	}
	if err != nil {
		return identity.Session{}, errors.Wrap(err, "reading session")
	}

	var sess identity.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return identity.Session{}, errors.Wrap(err, "decoding session")
	}

	// Redis expires the key on its own; the re-check covers clock drift
	// between save and read.
	if sess.IsExpired() {
		_ = store.rdb.Del(ctx, sessionKeyPrefix+id).Err()
		return identity.Session{}, identity.ErrSessionNotFound
	}
	return sess, nil
}

func (store sessionStore) SaveSession(ctx context.Context, sess identity.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return store.DeleteSession(ctx, sess.ID)
	}

	b, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err := store.rdb.Set(ctx, sessionKeyPrefix+sess.ID, b, ttl).Err(); err != nil {
		return errors.Wrap(err, "saving session")
	}
	return nil
}

func (store sessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := store.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

func (store sessionStore) QueryAllSessions(ctx context.Context) ([]identity.Session, error) {
	var sessions []identity.Session

	iter := store.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		b, err := store.rdb.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil { // expired between scan and read
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading session")
		}

		var sess identity.Session
		if err := json.Unmarshal(b, &sess); err != nil {
			return nil, errors.Wrap(err, "decoding session")
		}
		if !sess.IsExpired() {
			sessions = append(sessions, sess)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning sessions")
	}
	return sessions, nil
}
