package schoolapi

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

// Wire shapes of the auth endpoints. The account row and the role profile
// arrive side by side; the profile carries the display name.
type (
	userPayload struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Role     string `json:"role"`
		IsActive bool   `json:"is_active"`
	}

	profilePayload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	studentPayload struct {
		ID          string      `json:"id"`
		StudentID   string      `json:"student_id"`
		RollNo      string      `json:"roll_no"`
		Name        string      `json:"name"`
		ClassName   null.String `json:"class_name"`
		SectionName null.String `json:"section_name"`
		SessionName null.String `json:"session_name"`
	}

	staffAuthPayload struct {
		Access  string          `json:"access"`
		Refresh string          `json:"refresh"`
		User    *userPayload    `json:"user"`
		Teacher *profilePayload `json:"teacher"`
		Admin   *profilePayload `json:"admin"`
	}

	studentAuthPayload struct {
		Access  string          `json:"access"`
		Refresh string          `json:"refresh"`
		Student *studentPayload `json:"student"`
	}
)

func (p staffAuthPayload) staffUser() identity.StaffUser {
	var usr identity.StaffUser
	if p.User != nil {
		usr = identity.StaffUser{
			ID:       p.User.ID,
			Username: p.User.Username,
			Email:    p.User.Email,
			Role:     p.User.Role,
			IsActive: p.User.IsActive,
		}
	}
	switch {
	case p.Teacher != nil:
		usr.Name = p.Teacher.Name
	case p.Admin != nil:
		usr.Name = p.Admin.Name
	}
	return usr
}

func (p studentPayload) principal() identity.StudentPrincipal {
	return identity.StudentPrincipal{
		ID:          p.ID,
		StudentID:   p.StudentID,
		Name:        p.Name,
		RollNo:      p.RollNo,
		ClassName:   p.ClassName,
		SectionName: p.SectionName,
		SessionName: p.SessionName,
	}
}

// badCredentials folds a 401 into the identity sentinel; every other error,
// the 429 lockout included, passes through untouched.
func badCredentials(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return errors.Wrap(identity.ErrBadCredentials, apiErr.Detail)
	}
	return err
}

func (c *client) StaffLogin(ctx context.Context, email, password string) (identity.Tokens, identity.StaffUser, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var out staffAuthPayload
	if err := c.do(ctx, http.MethodPost, "/auth/login/", "", body, &out); err != nil {
		return identity.Tokens{}, identity.StaffUser{}, badCredentials(err)
	}
	return identity.Tokens{Access: out.Access, Refresh: out.Refresh}, out.staffUser(), nil
}

func (c *client) StudentLogin(ctx context.Context, studentID, password string) (identity.Tokens, identity.StudentPrincipal, error) {
	body := struct {
		StudentID string `json:"student_id"`
		Password  string `json:"password"`
	}{StudentID: studentID, Password: password}

	var out studentAuthPayload
	if err := c.do(ctx, http.MethodPost, "/auth/student-login/", "", body, &out); err != nil {
		return identity.Tokens{}, identity.StudentPrincipal{}, badCredentials(err)
	}
	var stu identity.StudentPrincipal
	if out.Student != nil {
		stu = out.Student.principal()
	}
	return identity.Tokens{Access: out.Access, Refresh: out.Refresh}, stu, nil
}

// Logout blacklists the refresh token upstream.
func (c *client) Logout(ctx context.Context, tokens identity.Tokens) error {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: tokens.Refresh}
	return c.do(ctx, http.MethodPost, "/auth/logout/", tokens.Access, body, nil)
}

func (c *client) Refresh(ctx context.Context, refresh string) (identity.Tokens, error) {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refresh}

	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh/", "", body, &out); err != nil {
		return identity.Tokens{}, err
	}
	return identity.Tokens{Access: out.Access, Refresh: out.Refresh}, nil
}

func (c *client) CurrentStaff(ctx context.Context, access string) (identity.StaffUser, error) {
	var out staffAuthPayload
	if err := c.do(ctx, http.MethodGet, "/auth/me/", access, nil, &out); err != nil {
		return identity.StaffUser{}, err
	}
	return out.staffUser(), nil
}

func (c *client) CurrentStudent(ctx context.Context, access string) (identity.StudentPrincipal, error) {
	var out struct {
		Student *studentPayload `json:"student"`
	}
	if err := c.do(ctx, http.MethodGet, "/student/me/", access, nil, &out); err != nil {
		return identity.StudentPrincipal{}, err
	}
	if out.Student == nil {
		return identity.StudentPrincipal{}, errors.Wrap(identity.ErrSessionInvalid, "no student in response")
	}
	return out.Student.principal(), nil
}
