package echoportal

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core/school"
)

type teacherApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, guard echo.MiddlewareFunc, svc *school.Service, validate *validator.Validate) {
	api := teacherApi{svc: svc, validate: validate}

	tg := g.Group("/teacher", guard)
	tg.GET("", api.dashboard)
	tg.GET("/students", api.roster)
	tg.GET("/marks", api.marksGrid)
	tg.POST("/marks", api.upsertMark)
	tg.POST("/marks/bulk", api.upsertMarksBulk)
	tg.GET("/marksheets", api.classMarksheet)
}

// Handlers

// dashboard joins the teacher's assignments with their pending marks tasks.
// The school API resolves the teacher from the token; the portal user id
// only keys the cache.
func (api *teacherApi) dashboard(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	token := sess.Tokens.Access
	teacherID := sess.Identity.User.ID // the area guard only admits teacher sessions

	mine, err := api.svc.MyAssignments(ctx.Request().Context(), token, teacherID)
	if err != nil {
		return errors.Wrap(err, "loading assignments")
	}
	tasks, err := api.svc.PendingTasks(ctx.Request().Context(), token, teacherID)
	if err != nil {
		return errors.Wrap(err, "loading pending tasks")
	}

	assignments := mine.Assignments
	if assignments == nil {
		assignments = []school.Assignment{}
	}
	pending := tasks.Tasks
	if pending == nil {
		pending = []school.PendingTask{}
	}
	return ctx.JSON(http.StatusOK, TeacherDashboardResponse{
		Teacher:      mine.Teacher,
		Session:      mine.Session,
		Assignments:  assignments,
		PendingTasks: pending,
	})
}

func (api *teacherApi) roster(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var q GridQuery
	q.Bind(ctx)
	filter := school.StudentFilter{ClassID: q.Class, SectionID: q.Section, SessionID: q.Session}

	students, err := api.svc.Students(ctx.Request().Context(), token, filter)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// marksGrid returns the class roster joined with each student's result, or
// null where none has been entered yet.
func (api *teacherApi) marksGrid(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var q GridQuery
	q.Bind(ctx)
	filter := school.MarksFilter{SessionID: q.Session, ClassID: q.Class, SectionID: q.Section, SubjectID: q.Subject}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	rows, err := api.svc.ClassResults(ctx.Request().Context(), token, filter)
	if err != nil {
		return errors.Wrap(err, "loading marks grid")
	}
	if rows == nil {
		rows = []school.RosterRow{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

// upsertMark writes one student's marks. The school API enforces the
// assignment rule; an unassigned teacher's 403 passes through as-is.
func (api *teacherApi) upsertMark(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.MarkUpsert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkUpsert")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.UpsertMark(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "saving marks")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *teacherApi) upsertMarksBulk(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	var data school.BulkMarkUpsert
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMarkUpsert")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	results, err := api.svc.UpsertMarksBulk(ctx.Request().Context(), token, data)
	if err != nil {
		return errors.Wrap(err, "saving marks")
	}
	if results == nil {
		results = []school.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *teacherApi) classMarksheet(ctx echo.Context) error {
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

type TeacherDashboardResponse struct {
	Teacher      school.Teacher       `json:"teacher"`
	Session      *school.Session      `json:"session"`
	Assignments  []school.Assignment  `json:"assignments"`
	PendingTasks []school.PendingTask `json:"pending_tasks"`
}
