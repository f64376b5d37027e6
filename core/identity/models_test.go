package identity

import (
	"testing"
	"time"
)

func TestRolePaths(t *testing.T) {
	tests := []struct {
		name          string
		role          string
		wantDashboard string
		wantLogin     string
	}{
		{name: "admin", role: RoleAdmin, wantDashboard: "/admin", wantLogin: "/login/admin"},
		{name: "teacher", role: RoleTeacher, wantDashboard: "/teacher", wantLogin: "/login/teacher"},
		{name: "student", role: RoleStudent, wantDashboard: "/student", wantLogin: "/login/student"},
		{name: "unknown falls back to admin", role: "janitor", wantDashboard: "/admin", wantLogin: "/login/admin"},
		{name: "empty falls back to admin", role: "", wantDashboard: "/admin", wantLogin: "/login/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DashboardPath(tt.role); got != tt.wantDashboard {
				t.Errorf("DashboardPath() = %v, want %v", got, tt.wantDashboard)
			}
			if got := LoginPath(tt.role); got != tt.wantLogin {
				t.Errorf("LoginPath() = %v, want %v", got, tt.wantLogin)
			}
		})
	}
}

func TestRoleForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/admin", want: RoleAdmin},
		{path: "/admin/students", want: RoleAdmin},
		{path: "/teacher/marks/entry", want: RoleTeacher},
		{path: "/student", want: RoleStudent},
		{path: "/administrator", want: ""}, // prefix match is per path segment
		{path: "/login/admin", want: ""},
		{path: "/", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := RoleForPath(tt.path); got != tt.want {
				t.Errorf("RoleForPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIdentityEffectiveRole(t *testing.T) {
	staff := &StaffUser{Username: "amina", Role: RoleTeacher}
	stu := &StudentPrincipal{StudentID: "STU17234"}

	tests := []struct {
		name string
		idn  Identity
		want string
	}{
		{name: "zero", idn: Identity{}, want: ""},
		{name: "staff", idn: Identity{User: staff}, want: RoleTeacher},
		{name: "student", idn: Identity{Student: stu}, want: RoleStudent},
		{name: "student wins over staff", idn: Identity{User: staff, Student: stu}, want: RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.idn.EffectiveRole(); got != tt.want {
				t.Errorf("EffectiveRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionFreshness(t *testing.T) {
	window := time.Minute
	now := time.Now().UTC()

	tests := []struct {
		name          string
		lastValidated time.Time
		want          bool
	}{
		{name: "never validated", want: false},
		{name: "just validated", lastValidated: now, want: true},
		{name: "within window", lastValidated: now.Add(-30 * time.Second), want: true},
		{name: "window elapsed", lastValidated: now.Add(-2 * time.Minute), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := Session{LastValidated: tt.lastValidated}
			if got := sess.IsFresh(window); got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionID(t *testing.T) {
	id := SessionID("secret", "token-a")
	if len(id) != 64 {
		t.Errorf("SessionID() len = %d, want 64 hex chars", len(id))
	}
	if id != SessionID("secret", "token-a") {
		t.Error("SessionID() not deterministic")
	}
	if id == SessionID("secret", "token-b") {
		t.Error("SessionID() ignores the token")
	}
	if id == SessionID("other", "token-a") {
		t.Error("SessionID() ignores the secret")
	}
}
