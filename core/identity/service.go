package identity

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa/portal/core"
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
)

type (
	// Authenticator is the slice of the school API the identity service needs.
	Authenticator interface {
		StaffLogin(ctx context.Context, email, password string) (Tokens, StaffUser, error)
		StudentLogin(ctx context.Context, studentID, password string) (Tokens, StudentPrincipal, error)
		Logout(ctx context.Context, tokens Tokens) error
		Refresh(ctx context.Context, refresh string) (Tokens, error)
		CurrentStaff(ctx context.Context, access string) (StaffUser, error)
		CurrentStudent(ctx context.Context, access string) (StudentPrincipal, error)
	}

	Service struct {
		store  SessionStore
		auth   Authenticator
		audit  AuditLog
		logger core.Logger
		conf   *core.Config

		mu         sync.Mutex
		inflight   map[string]*inflightCall
		watchers   map[string]watcherHandle
		watcherGen uint64
	}

	// inflightCall lets concurrent validations of the same session share one
	// upstream round-trip instead of racing each other.
	inflightCall struct {
		done chan struct{}
		sess Session
		err  error
	}
)

func NewService(store SessionStore, auth Authenticator, audit AuditLog, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		store:    store,
		auth:     auth,
		audit:    audit,
		logger:   logger,
		conf:     conf,
		inflight: make(map[string]*inflightCall),
		watchers: make(map[string]watcherHandle),
	}
}

// Login authenticates against the school API and establishes a server-side
// session. Students authenticate with their student code, staff with their
// email. The portal never checks passwords itself.
func (svc *Service) Login(ctx context.Context, role, username, password, ip, userAgent string) (Session, error) {
	if !KnownRole(role) {
		return Session{}, ErrRoleMismatch
	}

	var (
		tokens Tokens
		idn    Identity
		err    error
	)
	if role == RoleStudent {
		var stu StudentPrincipal
		tokens, stu, err = svc.auth.StudentLogin(ctx, username, password)
		if err == nil {
			idn.Student = &stu
		}
	} else {
		var usr StaffUser
		tokens, usr, err = svc.auth.StaffLogin(ctx, username, password)
		if err == nil {
			idn.User = &usr
			if usr.Role != role {
				// valid staff account, wrong portal: drop the issued tokens
				if lerr := svc.auth.Logout(ctx, tokens); lerr != nil {
					svc.logger.Warn("upstream logout after role mismatch", lerr)
				}
				err = ErrRoleMismatch
			}
		}
	}
	if err != nil {
		svc.recordEvent(ctx, Event{
			Kind:      EventSignInFailed,
			Role:      role,
			Subject:   username,
			IPAddress: ip,
			UserAgent: userAgent,
			Detail:    null.StringFrom(err.Error()),
		})
		return Session{}, errors.Wrap(err, "authenticating with school API")
	}

	now := time.Now().UTC()
	sess := Session{
		ID:            SessionID(svc.conf.SecretKey, tokens.Access),
		Identity:      idn,
		Tokens:        tokens,
		CreatedAt:     now,
		ExpiresAt:     now.Add(svc.conf.Session.TTL),
		LastValidated: now,
		UserAgent:     userAgent,
		IPAddress:     ip,
	}
	if err := svc.store.SaveSession(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}

	svc.recordEvent(ctx, Event{
		Kind:      EventSignIn,
		Role:      role,
		Subject:   idn.Subject(),
		SessionID: sess.ID,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	svc.StartWatcher(sess)
	return sess, nil
}

// Logout revokes the session. It is idempotent: a session that is already
// gone is not an error, and upstream revocation is best effort.
func (svc *Service) Logout(ctx context.Context, id string) error {
	sess, err := svc.store.GetSession(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return nil
		}
		return errors.Wrap(err, "finding session")
	}

	svc.StopWatcher(id)
	if err := svc.auth.Logout(ctx, sess.Tokens); err != nil {
		svc.logger.Warn("upstream logout failed", err)
	}
	if err := svc.store.DeleteSession(ctx, id); err != nil && errors.Cause(err) != ErrSessionNotFound {
		return errors.Wrap(err, "deleting session")
	}

	svc.recordEvent(ctx, Event{
		Kind:      EventSignOut,
		Role:      sess.Role(),
		Subject:   sess.Identity.Subject(),
		SessionID: id,
		IPAddress: sess.IPAddress,
		UserAgent: sess.UserAgent,
	})
	return nil
}

// Destroy force-revokes a session without notifying the caller's browser;
// the next guarded request gets the redirect. Used on validation rejections,
// expiry and operator revocation.
func (svc *Service) Destroy(ctx context.Context, id, reason string) error {
	sess, err := svc.store.GetSession(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return nil
		}
		return errors.Wrap(err, "finding session")
	}
	svc.destroy(ctx, sess, reason)
	return nil
}

func (svc *Service) destroy(ctx context.Context, sess Session, reason string) {
	svc.StopWatcher(sess.ID)
	if err := svc.store.DeleteSession(ctx, sess.ID); err != nil && errors.Cause(err) != ErrSessionNotFound {
		svc.logger.Error("deleting session", errors.Wrap(err, "deleting session"))
	}
	svc.recordEvent(ctx, Event{
		Kind:      EventForcedLogout,
		Role:      sess.Role(),
		Subject:   sess.Identity.Subject(),
		SessionID: sess.ID,
		IPAddress: sess.IPAddress,
		UserAgent: sess.UserAgent,
		Detail:    null.StringFrom(reason),
	})
}

// Validate round-trips the session's access token to the school API and
// refreshes the stored identity. Concurrent calls for the same session share
// a single round-trip.
//
// A definitive rejection destroys the session and returns ErrSessionInvalid.
// An unreachable API returns the session as-is with a core.ErrUnavailable
// cause: the caller stays signed in.
func (svc *Service) Validate(ctx context.Context, id string) (Session, error) {
	svc.mu.Lock()
	if call, ok := svc.inflight[id]; ok {
		svc.mu.Unlock()
		select {
		case <-call.done:
			return call.sess, call.err
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	svc.inflight[id] = call
	svc.mu.Unlock()

	call.sess, call.err = svc.validate(ctx, id)
	close(call.done)

	svc.mu.Lock()
	delete(svc.inflight, id)
	svc.mu.Unlock()

	return call.sess, call.err
}

func (svc *Service) validate(ctx context.Context, id string) (Session, error) {
	sess, err := svc.store.GetSession(ctx, id)
	if err != nil {
		return Session{}, errors.Wrap(err, "finding session")
	}
	if sess.IsExpired() {
		svc.destroy(ctx, sess, "session expired")
		return Session{}, ErrSessionInvalid
	}

	var idn Identity
	if sess.Role() == RoleStudent {
		stu, err := svc.auth.CurrentStudent(ctx, sess.Tokens.Access)
		if err != nil {
			return svc.validationFailed(ctx, sess, err)
		}
		idn.Student = &stu
	} else {
		usr, err := svc.auth.CurrentStaff(ctx, sess.Tokens.Access)
		if err != nil {
			return svc.validationFailed(ctx, sess, err)
		}
		idn.User = &usr
	}

	sess.Identity = idn
	sess.LastValidated = time.Now().UTC()
	if err := svc.store.SaveSession(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	return sess, nil
}

func (svc *Service) validationFailed(ctx context.Context, sess Session, err error) (Session, error) {
	if core.IsUnavailable(err) {
		// no definitive answer; the session stays live
		return sess, errors.Wrap(err, "validating session")
	}
	svc.destroy(ctx, sess, "rejected during validation")
	return Session{}, ErrSessionInvalid
}

// Refresh rotates the access token via the school API and re-keys the session
// under the new token's id.
func (svc *Service) Refresh(ctx context.Context, id string) (Session, error) {
	sess, err := svc.store.GetSession(ctx, id)
	if err != nil {
		return Session{}, errors.Wrap(err, "finding session")
	}
	if sess.IsExpired() {
		svc.destroy(ctx, sess, "session expired")
		return Session{}, ErrSessionInvalid
	}

	tokens, err := svc.auth.Refresh(ctx, sess.Tokens.Refresh)
	if err != nil {
		if core.IsUnavailable(err) {
			return sess, errors.Wrap(err, "refreshing tokens")
		}
		svc.destroy(ctx, sess, "refresh rejected")
		return Session{}, ErrSessionInvalid
	}
	if tokens.Refresh == "" {
		// the school API does not always rotate the refresh token
		tokens.Refresh = sess.Tokens.Refresh
	}

	svc.StopWatcher(sess.ID)
	if err := svc.store.DeleteSession(ctx, sess.ID); err != nil && errors.Cause(err) != ErrSessionNotFound {
		svc.logger.Error("deleting session", errors.Wrap(err, "re-keying session"))
	}

	sess.ID = SessionID(svc.conf.SecretKey, tokens.Access)
	sess.Tokens = tokens
	sess.LastValidated = time.Now().UTC()
	if err := svc.store.SaveSession(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	svc.StartWatcher(sess)
	return sess, nil
}

// Get returns the live session record.
func (svc *Service) Get(ctx context.Context, id string) (Session, error) {
	return svc.store.GetSession(ctx, id)
}

// QueryAll lists all live sessions; used by the ops CLI and audit views.
func (svc *Service) QueryAll(ctx context.Context) ([]Session, error) {
	return svc.store.QueryAllSessions(ctx)
}

func (svc *Service) UpdatePrefs(ctx context.Context, id string, prefs UIPrefs) (Session, error) {
	sess, err := svc.store.GetSession(ctx, id)
	if err != nil {
		return Session{}, errors.Wrap(err, "finding session")
	}
	sess.Prefs = prefs
	if err := svc.store.SaveSession(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	return sess, nil
}

func (svc *Service) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	return svc.audit.QueryRecentEvents(ctx, limit)
}

func (svc *Service) recordEvent(ctx context.Context, evt Event) {
	evt.ID = newEventID()
	evt.CreatedAt = time.Now().UTC()
	if err := svc.audit.RecordEvent(ctx, evt); err != nil {
		svc.logger.Warn("recording auth event", errors.Wrap(err, "recording auth event"))
	}
}
