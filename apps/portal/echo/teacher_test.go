package echoportal

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
)

func Test_teacherApi_dashboard(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleTeacher)

	req, rec := newAuthRequest(http.MethodGet, "/teacher", sess.Tokens.Access, sess.Role())
	d.app.ServeHTTP(rec, req)

	want := TeacherDashboardResponse{
		Teacher:      d.api.teachers[0],
		Session:      &d.api.activeSession,
		Assignments:  d.api.assignments,
		PendingTasks: d.api.tasks,
	}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)
}

func Test_teacherApi_roster(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleTeacher)

	req, rec := newAuthRequest(http.MethodGet, "/teacher/students?session=ses-1&class=cls-1&section=sec-1", sess.Tokens.Access, sess.Role())
	d.app.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, d.api.students)}, rec)
	want := school.StudentFilter{ClassID: "cls-1", SectionID: "sec-1", SessionID: "ses-1"}
	if d.api.lastStudentFilter != want {
		t.Errorf("filter = %+v; want %+v", d.api.lastStudentFilter, want)
	}
}

func Test_teacherApi_marksGrid(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleTeacher)

	t.Run("joins the roster with results", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/teacher/marks?session=ses-1&class=cls-1&section=sec-1&subject=sub-1", sess.Tokens.Access, sess.Role())
		d.app.ServeHTTP(rec, req)

		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, d.api.roster)}, rec)
		want := school.MarksFilter{SessionID: "ses-1", ClassID: "cls-1", SectionID: "sec-1", SubjectID: "sub-1"}
		if d.api.lastMarksFilter != want {
			t.Errorf("filter = %+v; want %+v", d.api.lastMarksFilter, want)
		}
	})

	t.Run("needs the full grid selection", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/teacher/marks?session=ses-1&class=cls-1&section=sec-1", sess.Tokens.Access, sess.Role())
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{
			"error":  "invalid input",
			"fields": []core.FieldError{{Field: "subject", Error: "this field is required"}},
		})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_teacherApi_upsertMark(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleTeacher)

	t.Run("saves one student's marks", func(t *testing.T) {
		body := []byte(`{"student_id":"stu-1","subject_id":"sub-1","session_id":"ses-1","first_summative_obtained":38}`)
		req, rec := newAuthRequest(http.MethodPost, "/teacher/marks", sess.Tokens.Access, sess.Role(), body)
		d.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var res school.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		if res.ID != "res-new" || res.StudentID != "stu-1" || res.FirstSummativeObtained.Float64 != 38 {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("rejects an unkeyed mark", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/teacher/marks", sess.Tokens.Access, sess.Role(), []byte(`{"first_summative_obtained":38}`))
		d.app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{
			"error": "invalid input",
			"fields": []core.FieldError{
				{Field: "student_id", Error: "this field is required"},
				{Field: "subject_id", Error: "this field is required"},
				{Field: "session_id", Error: "this field is required"},
			},
		})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("the school API's assignment verdict passes through", func(t *testing.T) {
		d.api.markErr = &core.APIError{StatusCode: http.StatusForbidden, Detail: "You are not assigned to this class/section/subject."}
		defer func() { d.api.markErr = nil }()

		body := []byte(`{"student_id":"stu-1","subject_id":"sub-2","session_id":"ses-1"}`)
		req, rec := newAuthRequest(http.MethodPost, "/teacher/marks", sess.Tokens.Access, sess.Role(), body)
		d.app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "You are not assigned to this class/section/subject."}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_teacherApi_upsertMarksBulk(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleTeacher)

	body := []byte(`{"results":[
		{"student_id":"stu-1","subject_id":"sub-1","session_id":"ses-1","first_summative_obtained":38},
		{"student_id":"stu-2","subject_id":"sub-1","session_id":"ses-1","first_summative_obtained":31}
	]}`)
	req, rec := newAuthRequest(http.MethodPost, "/teacher/marks/bulk", sess.Tokens.Access, sess.Role(), body)
	d.app.ServeHTTP(rec, req)

	want := []school.Result{
		{ID: "res-bulk-0", StudentID: "stu-1", SubjectID: "sub-1", SessionID: "ses-1", CreatedAt: d.api.tstamp},
		{ID: "res-bulk-1", StudentID: "stu-2", SubjectID: "sub-1", SessionID: "ses-1", CreatedAt: d.api.tstamp},
	}
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, want)}, rec)
}

func Test_teacherApi_classMarksheet(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleTeacher)

	req, rec := newAuthRequest(http.MethodGet, "/teacher/marksheets?session=ses-1&class=cls-1&section=sec-1", sess.Tokens.Access, sess.Role())
	d.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, d.api.sheetRows)}, rec)
}

func Test_teacherArea_turnsAdminsAway(t *testing.T) {
	d := initApp(t)
	sess := d.signIn(t, identity.RoleAdmin)

	req, rec := newAuthRequest(http.MethodGet, "/teacher/marks", sess.Tokens.Access, sess.Role())
	d.app.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/admin" {
		t.Errorf("Location = %q; want %q", loc, "/admin")
	}
}
