package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

// areaMiddleware runs the session guard for one portal area and translates
// its decision: redirect, clear cookies, flag degraded, or admit with the
// session on the context.
func areaMiddleware(area string, guard *identity.Guard, conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			dec := guard.Evaluate(req.Context(), requestSessionID(ctx, conf), area, req.URL.RequestURI())

			if dec.ClearCookies {
				clearAuthCookies(ctx, conf)
			}
			if dec.Degraded {
				ctx.Response().Header().Set(degradedHeader, degradedValue)
			}
			if dec.RedirectTo != "" {
				return ctx.Redirect(http.StatusSeeOther, dec.RedirectTo)
			}

			ctx.Set(contextSessionKey, dec.Session)
			return next(ctx)
		}
	}
}

// sessionMiddleware resolves the caller's session for routes open to any
// signed-in role (/prefs, /auth/...). Unlike the area guard it answers 401
// instead of redirecting; these routes are called from scripts, not typed
// into the address bar.
func sessionMiddleware(svc *identity.Service, conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id := requestSessionID(ctx, conf)
			if id == "" {
				return errUnauthorized
			}

			sess, err := svc.Get(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == identity.ErrSessionNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "loading session")
			}
			if sess.IsExpired() {
				return errUnauthorized
			}

			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}
