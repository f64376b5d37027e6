package echoportal

import (
	"github.com/labstack/echo/v4"

	"github.com/darasa/portal/core"
)

// GridQuery carries the session/class/section/subject selection the roster,
// marks and marksheet routes share.
type GridQuery struct {
	Session string
	Class   string
	Section string
	Subject string
}

func (q *GridQuery) Bind(ctx echo.Context) {
	q.Session = core.CleanString(ctx.QueryParam("session"))
	q.Class = core.CleanString(ctx.QueryParam("class"))
	q.Section = core.CleanString(ctx.QueryParam("section"))
	q.Subject = core.CleanString(ctx.QueryParam("subject"))
}
