package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core/school"
)

type studentApi struct {
	svc *school.Service
}

func registerStudentAPI(g *echo.Group, guard echo.MiddlewareFunc, svc *school.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/student", guard)
	sg.GET("", api.profile)
	sg.GET("/results", api.results)
	sg.GET("/fees", api.fees)
	sg.GET("/marksheet.pdf", api.marksheetPDF)
}

// Handlers

func (api *studentApi) profile(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	stu, err := api.svc.MyProfile(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "loading profile")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) results(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var q GridQuery
	q.Bind(ctx)

	// the area guard only admits student sessions
	sheet, err := api.svc.StudentMarksheet(ctx.Request().Context(), sess.Tokens.Access, sess.Identity.Student.ID, q.Session)
	if err != nil {
		return errors.Wrap(err, "loading results")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *studentApi) fees(ctx echo.Context) error {
	token, err := contextToken(ctx)
	if err != nil {
		return err
	}

	fees, err := api.svc.StudentFees(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "loading fees")
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *studentApi) marksheetPDF(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var q GridQuery
	q.Bind(ctx)

	pdf, err := api.svc.StudentMarksheetPDF(ctx.Request().Context(), sess.Tokens.Access, sess.Identity.Student.ID, q.Session)
	if err != nil {
		return errors.Wrap(err, "downloading marksheet")
	}
	return servePDF(ctx, pdf)
}
