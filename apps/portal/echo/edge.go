package echoportal

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

// bypassPrefixes pass through the edge filter untouched: static assets and
// API-internal routes. Bypassed responses carry no security headers.
var bypassPrefixes = []string{"/static/", "/assets/", "/favicon.ico", "/api/"}

// publicPath reports whether a path is served without a token. Login routes
// are handled separately by the filter; /logout is public so signing out
// stays idempotent even after the cookies are gone.
func publicPath(path string) bool {
	switch path {
	case "/", "/logout", "/api/health":
		return true
	}
	return false
}

// edgeFilter stages every request before routing. It reads the cookie
// triple, bounces traffic that cannot possibly be served (no token, wrong
// area) and stamps security headers on everything else. It is deliberately
// signature-blind: tokens are only decoded for their expiry claim, the
// guard performs the real check against the school API.
func edgeFilter(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			path := ctx.Request().URL.Path

			for _, prefix := range bypassPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(ctx)
				}
			}

			setSecurityHeaders(ctx)

			role := cookieValue(ctx, userRoleCookie)
			expired := tokenExpired(cookieValue(ctx, accessTokenCookie))

			// signed-in callers have no business on a login page
			if path == "/login" || strings.HasPrefix(path, "/login/") {
				if !expired {
					return ctx.Redirect(http.StatusSeeOther, identity.DashboardPath(role))
				}
				return next(ctx)
			}

			if publicPath(path) {
				return next(ctx)
			}

			if expired {
				clearAuthCookies(ctx, conf)
				target := ctx.Request().URL.RequestURI()
				return ctx.Redirect(http.StatusSeeOther, identity.LoginRedirect(identity.RoleForPath(path), target))
			}

			// area paths only admit their own role
			if area := identity.RoleForPath(path); area != "" && role != area {
				return ctx.Redirect(http.StatusSeeOther, identity.DashboardPath(role))
			}

			return next(ctx)
		}
	}
}

// setSecurityHeaders stamps the three headers every served response carries.
func setSecurityHeaders(ctx echo.Context) {
	h := ctx.Response().Header()
	h.Set(echo.HeaderXFrameOptions, "DENY")
	h.Set(echo.HeaderXContentTypeOptions, "nosniff")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}
