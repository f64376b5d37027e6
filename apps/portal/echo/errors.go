package echoportal

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	errBadCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errWrongPortal    = echo.NewHTTPError(http.StatusForbidden, "account does not belong to this portal")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// Degraded-mode banner signal. Set whenever the portal serves a request it
// could not re-check against the school API.
const (
	degradedHeader = "X-Portal-Degraded"
	degradedValue  = "upstream-unreachable"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(conf *core.Config, logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
			if code == http.StatusNotFound {
				// lost callers get their bearings back
				msg := "not found"
				if m, ok := message.(string); ok {
					msg = strings.ToLower(m)
				}
				message = echo.Map{"error": msg, "home": "/", "back": localReferer(ctx)}
			}
		case *core.APIError:
			// the school API's verdict carries through untouched
			code = origErr.StatusCode
			body := echo.Map{"error": origErr.Detail}
			if len(origErr.Fields) > 0 {
				body["fields"] = origErr.Fields
			}
			if origErr.RetryAfter > 0 {
				body["retry_after"] = origErr.RetryAfter
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(origErr.RetryAfter))
			}
			message = body
		case validator.ValidationErrors:
			flds := make([]core.FieldError, 0, len(origErr))
			for _, vErr := range origErr {
				flds = append(flds, core.FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": "invalid input", "fields": flds}
		case *core.ValidationError:
			code = http.StatusBadRequest
			body := echo.Map{"error": "invalid input"}
			if origErr.Err != nil {
				body["error"] = origErr.Error()
			}
			if len(origErr.Fields) > 0 {
				body["fields"] = origErr.Fields
			}
			message = body
		default:
			switch {
			case core.IsUnavailable(err):
				// the session (if any) stays live; the caller sees the banner
				code = http.StatusServiceUnavailable
				message = "school API unavailable"
				ctx.Response().Header().Set(degradedHeader, degradedValue)
			case origErr == identity.ErrSessionInvalid || origErr == identity.ErrSessionNotFound:
				clearAuthCookies(ctx, conf)
				target := ctx.Request().URL.RequestURI()
				code = http.StatusUnauthorized
				message = echo.Map{
					"error":    "session is no longer valid",
					"redirect": identity.LoginRedirect(identity.RoleForPath(ctx.Request().URL.Path), target),
				}
			case origErr == identity.ErrRoleMismatch:
				code = http.StatusForbidden
				message = "permission denied"
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var idn identity.Identity
				if sess, sErr := getContextSession(ctx); sErr == nil {
					idn = sess.Identity
				}
				logger.Error(msg, errors.Wrap(err, msg), idn)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// localReferer returns the Referer's path when it points inside the portal,
// "" otherwise.
func localReferer(ctx echo.Context) string {
	ref := ctx.Request().Referer()
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.Host != "" && u.Host != ctx.Request().Host {
		return ""
	}
	if core.IsLocalPath(u.Path) {
		return u.Path
	}
	return ""
}
