package echoportal

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

func loginBody(t *testing.T, username, password, callback string) []byte {
	return marchallObj(t, LoginRequest{Username: username, Password: password, CallbackURL: callback})
}

func Test_portalApi_login(t *testing.T) {
	d := initApp(t)

	adminOK := LoginResponse{Identity: identity.Identity{User: &d.api.admin}, Role: identity.RoleAdmin, RedirectTo: "/admin"}
	adminCb := adminOK
	adminCb.RedirectTo = "/admin/students"
	studentOK := LoginResponse{Identity: identity.Identity{Student: &d.api.student}, Role: identity.RoleStudent, RedirectTo: "/student"}
	notFound := echo.Map{"error": "not found", "home": "/", "back": ""}

	tests := []httpTest{
		{name: "admin signs in", path: "/login/admin", body: loginBody(t, d.api.admin.Email, testPassword, ""), wantCode: http.StatusOK, wantData: marchallObj(t, adminOK)},
		{name: "callback rides along", path: "/login/admin", body: loginBody(t, d.api.admin.Email, testPassword, "/admin/students"), wantCode: http.StatusOK, wantData: marchallObj(t, adminCb)},
		{name: "foreign callback dropped", path: "/login/admin", body: loginBody(t, d.api.admin.Email, testPassword, "https://evil.test/x"), wantCode: http.StatusOK, wantData: marchallObj(t, adminOK)},
		{name: "student signs in with their code", path: "/login/student", body: loginBody(t, d.api.student.StudentID, testPassword, ""), wantCode: http.StatusOK, wantData: marchallObj(t, studentOK)},
		{name: "wrong password", path: "/login/admin", body: loginBody(t, d.api.admin.Email, "nope", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid credentials"})},
		{name: "unknown account", path: "/login/admin", body: loginBody(t, "ghost@darasa.test", testPassword, ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid credentials"})},
		{name: "teacher on the admin portal", path: "/login/admin", body: loginBody(t, d.api.teacher.Email, testPassword, ""), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account does not belong to this portal"})},
		{name: "unknown portal", path: "/login/janitor", body: loginBody(t, d.api.admin.Email, testPassword, ""), wantCode: http.StatusNotFound, wantData: marchallObj(t, notFound)},
		{name: "missing fields", path: "/login/admin", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{
			"error": "invalid input",
			"fields": []core.FieldError{
				{Field: "username", Error: "this field is required"},
				{Field: "password", Error: "this field is required"},
			},
		})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			d.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("cookies are issued", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/login/teacher", loginBody(t, d.api.teacher.Email, testPassword, ""))
		d.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		access := findCookie(rec, accessTokenCookie)
		if access == nil || access.Value == "" || !access.HttpOnly {
			t.Errorf("access cookie = %+v; want non-empty HttpOnly", access)
		}
		refresh := findCookie(rec, refreshTokenCookie)
		if refresh == nil || refresh.Value == "" || !refresh.HttpOnly {
			t.Errorf("refresh cookie = %+v; want non-empty HttpOnly", refresh)
		}
		role := findCookie(rec, userRoleCookie)
		if role == nil || role.Value != identity.RoleTeacher || role.HttpOnly {
			t.Errorf("role cookie = %+v; want readable %q", role, identity.RoleTeacher)
		}
	})

	t.Run("lockout passes through", func(t *testing.T) {
		d.api.setLockedOut(true)
		defer d.api.setLockedOut(false)

		req, rec := newRequest(http.MethodPost, "/login/admin", loginBody(t, d.api.admin.Email, testPassword, ""))
		d.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusTooManyRequests,
			wantData: marchallObj(t, echo.Map{"error": "Account locked. Try again in 10 minutes.", "retry_after": 600}),
		}
		checkCodeAndData(t, tt, rec)
		if got := rec.Header().Get("Retry-After"); got != "600" {
			t.Errorf("Retry-After = %q; want %q", got, "600")
		}
	})

	t.Run("school API down", func(t *testing.T) {
		d.api.setDown(true)
		defer d.api.setDown(false)

		req, rec := newRequest(http.MethodPost, "/login/admin", loginBody(t, d.api.admin.Email, testPassword, ""))
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, httpErr{Error: "school API unavailable"})}
		checkCodeAndData(t, tt, rec)
		if got := rec.Header().Get(degradedHeader); got != degradedValue {
			t.Errorf("%s = %q; want %q", degradedHeader, got, degradedValue)
		}
	})
}

func Test_portalApi_loginPage(t *testing.T) {
	d := initApp(t)

	tests := []httpTest{
		{name: "describes the portal", path: "/login/teacher", wantData: marchallObj(t, LoginPageResponse{Role: "teacher"})},
		{name: "carries a local callback", path: "/login/teacher?callbackUrl=%2Fteacher%2Fmarks", wantData: marchallObj(t, LoginPageResponse{Role: "teacher", CallbackURL: "/teacher/marks"})},
		{name: "drops a foreign callback", path: "/login/teacher?callbackUrl=https%3A%2F%2Fevil.test", wantData: marchallObj(t, LoginPageResponse{Role: "teacher"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.wantCode = http.StatusOK

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			d.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("unknown portal", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/login/janitor")
		d.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, echo.Map{"error": "not found", "home": "/", "back": ""})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_portalApi_logout(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleAdmin)
	wantBody := marchallObj(t, SuccessResponse{Success: "signed out"})

	req, rec := newAuthRequest(http.MethodPost, "/logout", sess.Tokens.Access, identity.RoleAdmin)
	d.app.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantBody}, rec)
	checkClearedCookies(t, rec)
	if _, err := d.idSvc.Get(context.Background(), sess.ID); errors.Cause(err) != identity.ErrSessionNotFound {
		t.Errorf("session still in store after logout; err = %v", err)
	}

	// signing out twice is fine; the cookies are already gone
	req, rec = newRequest(http.MethodPost, "/logout")
	d.app.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: wantBody}, rec)
	checkClearedCookies(t, rec)
}

func Test_portalApi_home(t *testing.T) {
	d := initApp(t)

	tests := []struct {
		name         string
		role         string
		wantLocation string
	}{
		{"admin lands on the admin dashboard", identity.RoleAdmin, "/admin"},
		{"teacher lands on the teacher dashboard", identity.RoleTeacher, "/teacher"},
		{"student lands on the student dashboard", identity.RoleStudent, "/student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := d.signIn(t, tt.role)
			req, rec := newAuthRequest(http.MethodGet, "/", sess.Tokens.Access, tt.role)
			d.app.ServeHTTP(rec, req)

			if rec.Code != http.StatusSeeOther {
				t.Errorf("code = %v; want %v", rec.Code, http.StatusSeeOther)
			}
			if loc := rec.Header().Get(echo.HeaderLocation); loc != tt.wantLocation {
				t.Errorf("Location = %q; want %q", loc, tt.wantLocation)
			}
		})
	}
}

func Test_portalApi_prefs(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleAdmin)

	t.Run("stale cookie without a session", func(t *testing.T) {
		orphan := mintAccessToken("someone", time.Now().Add(time.Hour))
		req, rec := newAuthRequest(http.MethodGet, "/prefs", orphan, identity.RoleAdmin)
		d.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotSignedIn)}, rec)
	})

	t.Run("defaults", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/prefs", sess.Tokens.Access, identity.RoleAdmin)
		d.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, identity.UIPrefs{})}, rec)
	})

	t.Run("update sticks", func(t *testing.T) {
		want := identity.UIPrefs{Theme: "dark", SidebarCollapsed: true}
		req, rec := newAuthRequest(http.MethodPut, "/prefs", sess.Tokens.Access, identity.RoleAdmin, marchallObj(t, want))
		d.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)

		stored, err := d.idSvc.Get(context.Background(), sess.ID)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if stored.Prefs != want {
			t.Errorf("stored prefs = %+v; want %+v", stored.Prefs, want)
		}
	})

	t.Run("unknown theme rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/prefs", sess.Tokens.Access, identity.RoleAdmin, []byte(`{"theme":"neon"}`))
		d.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{
			"error":  "invalid input",
			"fields": []core.FieldError{{Field: "theme", Error: "theme must be one of [light dark]"}},
		})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_portalApi_refresh(t *testing.T) {
	d := initApp(t)

	t.Run("rotates the token and re-keys the session", func(t *testing.T) {
		sess := d.signIn(t, identity.RoleAdmin)
		req, rec := newAuthRequest(http.MethodPost, "/auth/refresh", sess.Tokens.Access, identity.RoleAdmin)
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SessionResponse{
			Identity:  sess.Identity,
			Role:      identity.RoleAdmin,
			ExpiresAt: sess.ExpiresAt,
		})}
		checkCodeAndData(t, tt, rec)

		access := findCookie(rec, accessTokenCookie)
		if access == nil || access.Value == "" || access.Value == sess.Tokens.Access {
			t.Fatalf("access cookie not rotated: %+v", access)
		}
		if _, err := d.idSvc.Get(context.Background(), sess.ID); errors.Cause(err) != identity.ErrSessionNotFound {
			t.Errorf("old session id still live; err = %v", err)
		}
		newID := identity.SessionID(d.conf.SecretKey, access.Value)
		if _, err := d.idSvc.Get(context.Background(), newID); err != nil {
			t.Errorf("re-keyed session missing: %v", err)
		}
	})

	t.Run("unreachable school API keeps the session", func(t *testing.T) {
		sess := d.signIn(t, identity.RoleTeacher)
		d.api.setDown(true)
		defer d.api.setDown(false)

		req, rec := newAuthRequest(http.MethodPost, "/auth/refresh", sess.Tokens.Access, identity.RoleTeacher)
		d.app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, httpErr{Error: "school API unavailable"})}, rec)
		if got := rec.Header().Get(degradedHeader); got != degradedValue {
			t.Errorf("%s = %q; want %q", degradedHeader, got, degradedValue)
		}
		if _, err := d.idSvc.Get(context.Background(), sess.ID); err != nil {
			t.Errorf("session should survive an outage; err = %v", err)
		}
	})

	t.Run("rejection destroys the session", func(t *testing.T) {
		sess := d.signIn(t, identity.RoleStudent)
		d.api.setRejectAuth(true)
		defer d.api.setRejectAuth(false)

		req, rec := newAuthRequest(http.MethodPost, "/auth/refresh", sess.Tokens.Access, identity.RoleStudent)
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, echo.Map{
			"error":    "session is no longer valid",
			"redirect": "/login/admin?callbackUrl=%2Fauth%2Frefresh",
		})}
		checkCodeAndData(t, tt, rec)
		checkClearedCookies(t, rec)
		if _, err := d.idSvc.Get(context.Background(), sess.ID); errors.Cause(err) != identity.ErrSessionNotFound {
			t.Errorf("session should be destroyed; err = %v", err)
		}
	})

	t.Run("stale cookie without a session", func(t *testing.T) {
		orphan := mintAccessToken("someone", time.Now().Add(time.Hour))
		req, rec := newAuthRequest(http.MethodPost, "/auth/refresh", orphan, identity.RoleAdmin)
		d.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNotSignedIn)}, rec)
	})
}

func Test_portalApi_revalidate(t *testing.T) {
	d := initApp(t)

	t.Run("confirms a live session", func(t *testing.T) {
		sess := d.signIn(t, identity.RoleAdmin)
		req, rec := newAuthRequest(http.MethodPost, "/auth/revalidate", sess.Tokens.Access, identity.RoleAdmin)
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SessionResponse{
			Identity:  sess.Identity,
			Role:      identity.RoleAdmin,
			ExpiresAt: sess.ExpiresAt,
		})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unreachable school API flags degraded", func(t *testing.T) {
		sess := d.signIn(t, identity.RoleTeacher)
		d.api.setDown(true)
		defer d.api.setDown(false)

		req, rec := newAuthRequest(http.MethodPost, "/auth/revalidate", sess.Tokens.Access, identity.RoleTeacher)
		d.app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, httpErr{Error: "school API unavailable"})}, rec)
		if got := rec.Header().Get(degradedHeader); got != degradedValue {
			t.Errorf("%s = %q; want %q", degradedHeader, got, degradedValue)
		}
		if _, err := d.idSvc.Get(context.Background(), sess.ID); err != nil {
			t.Errorf("session should survive an outage; err = %v", err)
		}
	})

	t.Run("rejection clears the session", func(t *testing.T) {
		sess := d.signIn(t, identity.RoleStudent)
		d.api.setRejectAuth(true)
		defer d.api.setRejectAuth(false)

		req, rec := newAuthRequest(http.MethodPost, "/auth/revalidate", sess.Tokens.Access, identity.RoleStudent)
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, echo.Map{
			"error":    "session is no longer valid",
			"redirect": "/login/admin?callbackUrl=%2Fauth%2Frevalidate",
		})}
		checkCodeAndData(t, tt, rec)
		checkClearedCookies(t, rec)
		if _, err := d.idSvc.Get(context.Background(), sess.ID); errors.Cause(err) != identity.ErrSessionNotFound {
			t.Errorf("session should be destroyed; err = %v", err)
		}
	})
}

func Test_notFound_navigation(t *testing.T) {
	d := initApp(t)
	token := mintAccessToken("someone", time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		referer  string
		wantBack string
	}{
		{"no referer", "", ""},
		{"relative referer", "/admin/students", "/admin/students"},
		{"same-host referer", "http://example.com/admin/students", "/admin/students"},
		{"foreign referer", "https://evil.test/admin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/nope", token, identity.RoleAdmin)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			d.app.ServeHTTP(rec, req)

			want := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, echo.Map{"error": "not found", "home": "/", "back": tt.wantBack})}
			checkCodeAndData(t, want, rec)
		})
	}
}
