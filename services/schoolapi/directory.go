package schoolapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/darasa/portal/core/school"
)

// ---- students ----

func (c *client) Students(ctx context.Context, token string, filter school.StudentFilter) ([]school.Student, error) {
	q := make(url.Values)
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.ClassID != "" {
		q.Set("class_id", filter.ClassID)
	}
	if filter.SectionID != "" {
		q.Set("section_id", filter.SectionID)
	}
	if filter.SessionID != "" {
		q.Set("session_id", filter.SessionID)
	}

	var out []school.Student
	err := c.do(ctx, http.MethodGet, withQuery("/students/", q), token, nil, &out)
	return out, err
}

func (c *client) GetStudent(ctx context.Context, token, id string) (school.Student, error) {
	var out school.Student
	err := c.do(ctx, http.MethodGet, "/students/"+id+"/", token, nil, &out)
	return out, err
}

func (c *client) CreateStudent(ctx context.Context, token string, data school.NewStudent) (school.Student, error) {
	var out school.Student
	err := c.do(ctx, http.MethodPost, "/students/", token, data, &out)
	return out, err
}

func (c *client) CreateStudentsBulk(ctx context.Context, token string, data school.BulkStudents) ([]school.Student, error) {
	var out []school.Student
	err := c.do(ctx, http.MethodPost, "/students/bulk/", token, data, &out)
	return out, err
}

func (c *client) UpdateStudent(ctx context.Context, token, id string, data school.UpdateStudent) (school.Student, error) {
	var out school.Student
	err := c.do(ctx, http.MethodPut, "/students/"+id+"/", token, data, &out)
	return out, err
}

func (c *client) DeleteStudent(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/students/"+id+"/", token, nil, nil)
}

// MyProfile resolves the signed-in student from the token upstream; no id
// goes on the wire.
func (c *client) MyProfile(ctx context.Context, token string) (school.Student, error) {
	var out struct {
		Student school.Student `json:"student"`
	}
	err := c.do(ctx, http.MethodGet, "/student/me/", token, nil, &out)
	return out.Student, err
}

// ---- teachers ----

func (c *client) Teachers(ctx context.Context, token string) ([]school.Teacher, error) {
	var out []school.Teacher
	err := c.do(ctx, http.MethodGet, "/teachers/", token, nil, &out)
	return out, err
}

func (c *client) GetTeacher(ctx context.Context, token, id string) (school.Teacher, error) {
	var out school.Teacher
	err := c.do(ctx, http.MethodGet, "/teachers/"+id+"/", token, nil, &out)
	return out, err
}

func (c *client) CreateTeacher(ctx context.Context, token string, data school.NewTeacher) (school.Teacher, error) {
	var out school.Teacher
	err := c.do(ctx, http.MethodPost, "/teachers/", token, data, &out)
	return out, err
}

func (c *client) UpdateTeacher(ctx context.Context, token, id string, data school.UpdateTeacher) (school.Teacher, error) {
	var out school.Teacher
	err := c.do(ctx, http.MethodPut, "/teachers/"+id+"/", token, data, &out)
	return out, err
}

func (c *client) DeleteTeacher(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/teachers/"+id+"/", token, nil, nil)
}

// ResetTeacherPassword triggers the reset email upstream and returns the
// confirmation line for display.
func (c *client) ResetTeacherPassword(ctx context.Context, token, id string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/teachers/"+id+"/reset-password/", token, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ---- teaching assignments ----

func (c *client) Assignments(ctx context.Context, token string, filter school.AssignmentFilter) ([]school.Assignment, error) {
	q := make(url.Values)
	if filter.TeacherID != "" {
		q.Set("teacher_id", filter.TeacherID)
	}
	if filter.SessionID != "" {
		q.Set("session_id", filter.SessionID)
	}
	if filter.ClassID != "" {
		q.Set("class_id", filter.ClassID)
	}

	var out []school.Assignment
	err := c.do(ctx, http.MethodGet, withQuery("/teacher-assignments/", q), token, nil, &out)
	return out, err
}

func (c *client) CreateAssignment(ctx context.Context, token string, data school.NewAssignment) (school.Assignment, error) {
	var out school.Assignment
	err := c.do(ctx, http.MethodPost, "/teacher-assignments/", token, data, &out)
	return out, err
}

func (c *client) DeleteAssignment(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/teacher-assignments/"+id+"/", token, nil, nil)
}

// MyAssignments and PendingTasks resolve the teacher from the token
// upstream; no id goes on the wire.

func (c *client) MyAssignments(ctx context.Context, token string) (school.MyAssignments, error) {
	var out school.MyAssignments
	err := c.do(ctx, http.MethodGet, "/teacher/my-assignments/", token, nil, &out)
	return out, err
}

func (c *client) PendingTasks(ctx context.Context, token string) (school.PendingTasks, error) {
	var out school.PendingTasks
	err := c.do(ctx, http.MethodGet, "/teacher/pending-tasks/", token, nil, &out)
	return out, err
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
