package identity

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
)

func setupGuard() (*Guard, *fakeStore, *fakeAuth, *fakeMonitor) {
	store := newFakeStore()
	auth := &fakeAuth{
		tokens: Tokens{Access: "acc-1", Refresh: "ref-1"},
		staff:  StaffUser{ID: "u1", Username: "amina", Role: RoleAdmin, IsActive: true},
	}
	svc := NewService(store, auth, &fakeAudit{}, core.NopLogger{}, testConf())
	monitor := &fakeMonitor{latest: health.Status{APIReachable: true, AuthHealthy: true}}
	return NewGuard(svc, monitor, testConf()), store, auth, monitor
}

func seedGuardSession(t *testing.T, store *fakeStore, role string, lastValidated, expiresAt time.Time) Session {
	t.Helper()
	sess := Session{
		ID:            SessionID("secret", "acc-1"),
		Tokens:        Tokens{Access: "acc-1", Refresh: "ref-1"},
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     expiresAt,
		LastValidated: lastValidated,
	}
	if role == RoleStudent {
		sess.Identity = Identity{Student: &StudentPrincipal{ID: "s1", StudentID: "STU17234"}}
	} else {
		sess.Identity = Identity{User: &StaffUser{ID: "u1", Username: "amina", Role: role}}
	}
	if err := store.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("seedGuardSession() failed: %v", err)
	}
	return sess
}

func TestGuardAnonymous(t *testing.T) {
	guard, _, auth, _ := setupGuard()

	dec := guard.Evaluate(context.Background(), "", RoleAdmin, "/admin/students")
	if dec.State != StateUnauthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateUnauthorized)
	}
	if want := "/login/admin?callbackUrl=%2Fadmin%2Fstudents"; dec.RedirectTo != want {
		t.Errorf("Evaluate() redirect = %v, want %v", dec.RedirectTo, want)
	}
	if !dec.ClearCookies {
		t.Error("Evaluate() ClearCookies = false, want true")
	}
	if auth.calls() != 0 {
		t.Errorf("Evaluate() upstream calls = %d, want 0 for anonymous", auth.calls())
	}
}

func TestGuardUnknownSession(t *testing.T) {
	guard, _, _, _ := setupGuard()

	dec := guard.Evaluate(context.Background(), "nope", RoleAdmin, "/admin")
	if dec.State != StateUnauthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateUnauthorized)
	}
	if !dec.ClearCookies {
		t.Error("Evaluate() ClearCookies = false, want true")
	}
}

func TestGuardFreshSessionSkipsValidation(t *testing.T) {
	guard, store, auth, _ := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleAdmin, now, now.Add(time.Hour))

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin")
	if dec.State != StateAuthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateAuthorized)
	}
	if dec.RedirectTo != "" {
		t.Errorf("Evaluate() redirect = %v, want none", dec.RedirectTo)
	}
	if dec.Degraded {
		t.Error("Evaluate() Degraded = true, want false")
	}
	if auth.calls() != 0 {
		t.Errorf("Evaluate() upstream calls = %d, want 0 within freshness window", auth.calls())
	}
}

func TestGuardWrongRoleRedirectsHome(t *testing.T) {
	guard, store, _, _ := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleTeacher, now, now.Add(time.Hour))

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin")
	if dec.RedirectTo != "/teacher" {
		t.Errorf("Evaluate() redirect = %v, want /teacher", dec.RedirectTo)
	}
	if dec.ClearCookies {
		t.Error("Evaluate() ClearCookies = true, want the session kept")
	}
}

func TestGuardStaleSessionValidates(t *testing.T) {
	guard, store, auth, _ := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleAdmin, now.Add(-time.Hour), now.Add(time.Hour))

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin")
	if dec.State != StateAuthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateAuthorized)
	}
	if auth.calls() != 1 {
		t.Errorf("Evaluate() upstream calls = %d, want 1 past the window", auth.calls())
	}
	if !dec.Session.IsFresh(time.Minute) {
		t.Error("Evaluate() session not refreshed")
	}
}

func TestGuardValidationRejected(t *testing.T) {
	guard, store, auth, _ := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleAdmin, now.Add(-time.Hour), now.Add(time.Hour))
	auth.meErr = errors.New("401 invalid token")

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin/students")
	if dec.State != StateUnauthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateUnauthorized)
	}
	if !dec.ClearCookies {
		t.Error("Evaluate() ClearCookies = false, want true")
	}
	if want := "/login/admin?callbackUrl=%2Fadmin%2Fstudents"; dec.RedirectTo != want {
		t.Errorf("Evaluate() redirect = %v, want %v", dec.RedirectTo, want)
	}
	if store.count() != 0 {
		t.Errorf("Evaluate() stored sessions = %d, want destroyed after rejection", store.count())
	}
}

// An unreachable school API is not a rejection: the caller stays signed in
// and only sees the degraded flag.
func TestGuardValidationUnavailable(t *testing.T) {
	guard, store, auth, _ := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleAdmin, now.Add(-time.Hour), now.Add(time.Hour))
	auth.meErr = errors.Wrap(core.ErrUnavailable, "dial tcp: connection refused")

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin")
	if dec.State != StateErrored {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateErrored)
	}
	if !dec.Degraded {
		t.Error("Evaluate() Degraded = false, want true")
	}
	if dec.RedirectTo != "" {
		t.Errorf("Evaluate() redirect = %v, want none", dec.RedirectTo)
	}
	if dec.ClearCookies {
		t.Error("Evaluate() ClearCookies = true, want cookies kept")
	}
	if store.count() != 1 {
		t.Errorf("Evaluate() stored sessions = %d, want kept", store.count())
	}
}

func TestGuardExpiredSession(t *testing.T) {
	guard, store, _, _ := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleAdmin, now, now.Add(-time.Minute))

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin")
	if dec.State != StateUnauthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateUnauthorized)
	}
	if store.count() != 0 {
		t.Errorf("Evaluate() stored sessions = %d, want expired session dropped", store.count())
	}
}

func TestGuardAuthDegradedForcesValidation(t *testing.T) {
	guard, store, auth, monitor := setupGuard()
	now := time.Now().UTC()
	seedGuardSession(t, store, RoleAdmin, now, now.Add(time.Hour))
	monitor.latest = health.Status{APIReachable: true, AuthHealthy: false}

	dec := guard.Evaluate(context.Background(), SessionID("secret", "acc-1"), RoleAdmin, "/admin")
	if dec.State != StateAuthorized {
		t.Errorf("Evaluate() state = %v, want %v", dec.State, StateAuthorized)
	}
	if auth.calls() != 1 {
		t.Errorf("Evaluate() upstream calls = %d, want freshness window overridden", auth.calls())
	}
}

func TestGuardPokesMonitor(t *testing.T) {
	guard, _, _, monitor := setupGuard()

	guard.Evaluate(context.Background(), "", RoleAdmin, "/admin")
	guard.Evaluate(context.Background(), "nope", RoleAdmin, "/admin")
	if monitor.pokes != 2 {
		t.Errorf("Evaluate() pokes = %d, want one per evaluation", monitor.pokes)
	}
}

func TestLoginRedirect(t *testing.T) {
	tests := []struct {
		name   string
		area   string
		target string
		want   string
	}{
		{name: "local target", area: RoleAdmin, target: "/admin/students", want: "/login/admin?callbackUrl=%2Fadmin%2Fstudents"},
		{name: "target with query", area: RoleTeacher, target: "/teacher/marks?class=1", want: "/login/teacher?callbackUrl=%2Fteacher%2Fmarks%3Fclass%3D1"},
		{name: "no target", area: RoleStudent, target: "", want: "/login/student"},
		{name: "absolute url dropped", area: RoleAdmin, target: "https://evil.test/phish", want: "/login/admin"},
		{name: "scheme-relative dropped", area: RoleAdmin, target: "//evil.test", want: "/login/admin"},
		{name: "unknown area", area: "", target: "/x", want: "/login/admin?callbackUrl=%2Fx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LoginRedirect(tt.area, tt.target); got != tt.want {
				t.Errorf("LoginRedirect() = %v, want %v", got, tt.want)
			}
		})
	}
}
