package identity

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Portal roles. These double as the `user_role` cookie values and the
// top-level area names ("/admin", "/teacher", "/student").
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

func KnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// DashboardPath returns the landing path of a role's portal area.
func DashboardPath(role string) string {
	if KnownRole(role) {
		return "/" + role
	}
	return "/" + RoleAdmin
}

// LoginPath returns the login page path for a role, defaulting to admin.
func LoginPath(role string) string {
	if KnownRole(role) {
		return "/login/" + role
	}
	return "/login/" + RoleAdmin
}

// RoleForPath maps an area path to the role it belongs to ("" when none).
func RoleForPath(path string) string {
	for _, r := range AllRoles {
		if path == "/"+r || strings.HasPrefix(path, "/"+r+"/") {
			return r
		}
	}
	return ""
}

// StaffUser is an admin or teacher account as reported by the school API.
// Name comes from the role profile the API nests next to the account row.
type StaffUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"` // admin | teacher
	IsActive bool   `json:"is_active"`
}

// StudentPrincipal is a student account as reported by the school API.
// Students sign in with their student code, not an email. Only what the
// header bar and audit trail need is kept here; the full profile stays a
// school API read.
type StudentPrincipal struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"student_id"` // human code, e.g. "STU17234"
	Name        string      `json:"name"`
	RollNo      string      `json:"roll_no"`
	ClassName   null.String `json:"class_name"`
	SectionName null.String `json:"section_name"`
	SessionName null.String `json:"session_name"`
}

// Identity is who a session belongs to: a staff user or a student principal.
// The two are mutually exclusive; both set at once is a bug upstream of this type.
type Identity struct {
	User    *StaffUser        `json:"user,omitempty"`
	Student *StudentPrincipal `json:"student,omitempty"`
}

// EffectiveRole derives the portal role of the identity.
// The student principal wins should both ever be set.
func (id *Identity) EffectiveRole() string {
	if id.Student != nil {
		return RoleStudent
	}
	if id.User != nil {
		return id.User.Role
	}
	return ""
}

func (id *Identity) DisplayName() string {
	if id.Student != nil {
		return id.Student.Name
	}
	if id.User != nil {
		return id.User.Name
	}
	return ""
}

// Subject returns a stable reference for audit trails: the staff username
// or the student code.
func (id *Identity) Subject() string {
	if id.Student != nil {
		return id.Student.StudentID
	}
	if id.User != nil {
		return id.User.Username
	}
	return ""
}

func (id *Identity) IsZero() bool {
	return id.User == nil && id.Student == nil
}

// Tokens is the JWT pair issued by the school API.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UIPrefs are the durable per-session UI preferences.
// Transient loading/error flags are never persisted here.
type UIPrefs struct {
	Theme            string `json:"theme" validate:"omitempty,oneof=light dark"`
	SidebarCollapsed bool   `json:"sidebar_collapsed"`
}

// Session is the server-side session record. The browser only ever holds the
// cookie triple (access_token, refresh_token, user_role); everything else
// lives here.
type Session struct {
	ID            string    `json:"id"`
	Identity      Identity  `json:"identity"`
	Tokens        Tokens    `json:"tokens"`
	Prefs         UIPrefs   `json:"prefs"`
	CreatedAt     time.Time `json:"created_at"`     // UTC
	ExpiresAt     time.Time `json:"expires_at"`     // UTC
	LastValidated time.Time `json:"last_validated"` // UTC; zero until the first round-trip
	UserAgent     string    `json:"user_agent"`
	IPAddress     string    `json:"ip_address"`
}

func (s *Session) Role() string {
	return s.Identity.EffectiveRole()
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsFresh reports whether the last successful validation is younger than the window.
func (s *Session) IsFresh(window time.Duration) bool {
	if s.LastValidated.IsZero() {
		return false
	}
	return time.Since(s.LastValidated) < window
}

// Guard states. A session moves initializing -> validating -> one of the
// terminal-for-this-request states; see Guard.Evaluate.
const (
	StateInitializing = "initializing"
	StateValidating   = "validating"
	StateAuthorized   = "authorized"
	StateUnauthorized = "unauthorized"
	StateErrored      = "errored"
)
