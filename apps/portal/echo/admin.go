package echoportal

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
)

// auditEventLimit caps the admin audit view; older events stay queryable
// through the ops CLI.
const auditEventLimit = 50

type adminApi struct {
	svc      *school.Service
	idSvc    *identity.Service
	validate *validator.Validate
}

func registerAdminAPI(
	g *echo.Group,
	guard echo.MiddlewareFunc,
	svc *school.Service,
	idSvc *identity.Service,
	validate *validator.Validate,
) {
	api := adminApi{
		svc:      svc,
		idSvc:    idSvc,
		validate: validate,
	}

	ag := g.Group("/admin", guard)
	ag.GET("", api.dashboard)
	ag.GET("/fees", api.fees)
	ag.GET("/audit", api.audit)

	sg := ag.Group("/students")
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent)
	sg.POST("/bulk", api.createStudentsBulk)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)

	tg := ag.Group("/teachers")
	tg.GET("", api.queryTeachers)
	tg.POST("", api.createTeacher)
	tg.GET("/:id", api.retrieveTeacher)
	tg.PUT("/:id", api.updateTeacher)
	tg.DELETE("/:id", api.destroyTeacher)
	tg.POST("/:id/reset-password", api.resetTeacherPassword)

	cg := ag.Group("/classes")
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass)
	cg.DELETE("/:id", api.destroyClass)
	cg.GET("/:id/config", api.classConfig)

	mg := ag.Group("/marks-distribution")
	mg.POST("", api.createMarksDistribution)
	mg.PUT("/:id", api.updateMarksDistribution)

	secg := ag.Group("/sections")
	secg.GET("", api.querySections)
	secg.POST("", api.createSection)
	secg.PUT("/:id", api.updateSection)
	secg.DELETE("/:id", api.destroySection)

	subg := ag.Group("/subjects")
	subg.GET("", api.querySubjects)
	subg.POST("", api.createSubject)
	subg.PUT("/:id", api.updateSubject)
	subg.DELETE("/:id", api.destroySubject)

	seg := ag.Group("/sessions")
	seg.GET("", api.querySessions)
	seg.POST("", api.createSession)
	seg.PUT("/:id", api.updateSession)
	seg.DELETE("/:id", api.destroySession)

	asg := ag.Group("/assignments")
	asg.GET("", api.queryAssignments)
	asg.POST("", api.createAssignment)
	asg.DELETE("/:id", api.destroyAssignment)

	ag.GET("/marksheets", api.classMarksheet)
	ag.GET("/marksheets/pdf", api.classMarksheetPDF)
}

// Handlers

func (api *adminApi) dashboard(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	stats, err := api.svc.DashboardStats(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "loading dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// fees serves the fee roll-up slice of the dashboard without dragging the
// class distribution along.
func (api *adminApi) fees(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	stats, err := api.svc.DashboardStats(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "loading fee stats")
	}
	return ctx.JSON(http.StatusOK, FeesOverviewResponse{
		Fees:           stats.Fees,
		RecentPayments: stats.RecentPayments,
	})
}

func (api *adminApi) audit(ctx echo.Context) error {
	events, err := api.idSvc.RecentEvents(ctx.Request().Context(), auditEventLimit)
	if err != nil {
		return errors.Wrap(err, "loading audit events")
	}
	if events == nil {
		events = []identity.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

// students

func (api *adminApi) queryStudents(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	filter := new(school.StudentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	filter.Clean()

	students, err := api.svc.Students(ctx.Request().Context(), token, *filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) createStudent(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stu, err := api.svc.CreateStudent(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

func (api *adminApi) createStudentsBulk(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.BulkStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStudents")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	students, err := api.svc.CreateStudentsBulk(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating students")
	}
	return ctx.JSON(http.StatusCreated, students)
}

func (api *adminApi) retrieveStudent(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	stu, err := api.svc.GetStudent(ctx.Request().Context(), token, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *adminApi) updateStudent(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stu, err := api.svc.UpdateStudent(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *adminApi) destroyStudent(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteStudent(ctx.Request().Context(), token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// teachers

func (api *adminApi) queryTeachers(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	teachers, err := api.svc.Teachers(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []school.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *adminApi) createTeacher(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tch, err := api.svc.CreateTeacher(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, tch)
}

func (api *adminApi) retrieveTeacher(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	tch, err := api.svc.GetTeacher(ctx.Request().Context(), token, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *adminApi) updateTeacher(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tch, err := api.svc.UpdateTeacher(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *adminApi) destroyTeacher(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteTeacher(ctx.Request().Context(), token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) resetTeacherPassword(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	msg, err := api.svc.ResetTeacherPassword(ctx.Request().Context(), token, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "resetting teacher password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: msg})
}

// classes

func (api *adminApi) queryClasses(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	classes, err := api.svc.Classes(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *adminApi) createClass(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *adminApi) retrieveClass(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	cls, err := api.svc.GetClass(ctx.Request().Context(), token, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *adminApi) updateClass(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.UpdateClass(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *adminApi) destroyClass(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteClass(ctx.Request().Context(), token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) classConfig(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	cfg, err := api.svc.ClassConfig(ctx.Request().Context(), token, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading class config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

// marks distribution

func (api *adminApi) createMarksDistribution(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.MarksDistributionUpsert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarksDistributionUpsert")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dist, err := api.svc.CreateMarksDistribution(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating marks distribution")
	}
	return ctx.JSON(http.StatusCreated, dist)
}

func (api *adminApi) updateMarksDistribution(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.MarksDistributionUpsert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarksDistributionUpsert")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dist, err := api.svc.UpdateMarksDistribution(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating marks distribution")
	}
	return ctx.JSON(http.StatusOK, dist)
}

// sections

func (api *adminApi) querySections(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	sections, err := api.svc.Sections(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	if sections == nil {
		sections = []school.Section{}
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *adminApi) createSection(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.svc.CreateSection(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *adminApi) updateSection(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.svc.UpdateSection(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *adminApi) destroySection(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteSection(ctx.Request().Context(), token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// subjects; one surface over the school API's three subject resources

func (api *adminApi) querySubjects(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	subjects, err := api.svc.Subjects(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *adminApi) createSubject(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *adminApi) updateSubject(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.UpdateSubject(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *adminApi) destroySubject(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	kind := core.CleanString(ctx.QueryParam("kind"), true /* lower */)
	switch kind {
	case school.SubjectCore, school.SubjectOptional, school.SubjectCocurricular:
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "unknown subject kind"})
	}

	if err := api.svc.DeleteSubject(ctx.Request().Context(), token, kind, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// academic sessions

func (api *adminApi) querySessions(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	sessions, err := api.svc.Sessions(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []school.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *adminApi) createSession(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ses, err := api.svc.CreateSession(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, ses)
}

func (api *adminApi) updateSession(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ses, err := api.svc.UpdateSession(ctx.Request().Context(), token, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, ses)
}

func (api *adminApi) destroySession(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteSession(ctx.Request().Context(), token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// teaching assignments

func (api *adminApi) queryAssignments(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	filter := new(school.AssignmentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Assignment{})
	}

	assignments, err := api.svc.Assignments(ctx.Request().Context(), token, *filter)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []school.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *adminApi) createAssignment(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *adminApi) destroyAssignment(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteAssignment(ctx.Request().Context(), token, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// marksheets

func (api *adminApi) classMarksheet(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var q GridQuery
	q.Bind(ctx)
	filter := school.MarksheetFilter{SessionID: q.Session, ClassID: q.Class, SectionID: q.Section}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	rows, err := api.svc.ClassMarksheet(ctx.Request().Context(), token, filter)
	if err != nil {
		return errors.Wrap(err, "loading class marksheet")
	}
	if rows == nil {
		rows = []school.ClassMarksheetRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *adminApi) classMarksheetPDF(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var q GridQuery
	q.Bind(ctx)
	filter := school.MarksheetFilter{SessionID: q.Session, ClassID: q.Class, SectionID: q.Section}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	pdf, err := api.svc.ClassMarksheetPDF(ctx.Request().Context(), token, filter)
	if err != nil {
		return errors.Wrap(err, "downloading class marksheet")
	}
	return servePDF(ctx, pdf)
}

// servePDF streams a school API document with its upstream content type and
// filename preserved.
func servePDF(ctx echo.Context, pdf school.PDF) error {
	if pdf.Filename != "" {
		ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", pdf.Filename))
	}
	return ctx.Blob(http.StatusOK, pdf.ContentType, pdf.Content)
}

type FeesOverviewResponse struct {
	Fees           school.FeeStats `json:"fees"`
	RecentPayments json.RawMessage `json:"recent_payments"`
}
