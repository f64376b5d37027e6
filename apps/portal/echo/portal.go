package echoportal

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

type portalApi struct {
	svc      *identity.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerPortalAPI(
	g *echo.Group,
	svc *identity.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := portalApi{
		svc:      svc,
		conf:     conf,
		validate: validate,
	}

	g.GET("/", api.home)
	g.GET("/login/:role", api.loginPage)
	g.POST("/login/:role", api.login)
	g.POST("/logout", api.logout)

	session := sessionMiddleware(svc, conf)

	ag := g.Group("/auth", session)
	ag.POST("/refresh", api.refresh)
	ag.POST("/revalidate", api.revalidate)

	pg := g.Group("/prefs", session)
	pg.GET("", api.getPrefs)
	pg.PUT("", api.updatePrefs)
}

// Handlers

// home routes signed-in callers to their dashboard, everyone else to the
// admin login.
func (api *portalApi) home(ctx echo.Context) error {
	if id := requestSessionID(ctx, api.conf); id != "" {
		if sess, err := api.svc.Get(ctx.Request().Context(), id); err == nil && !sess.IsExpired() {
			return ctx.Redirect(http.StatusSeeOther, identity.DashboardPath(sess.Role()))
		}
	}
	return ctx.Redirect(http.StatusSeeOther, identity.LoginPath(identity.RoleAdmin))
}

// loginPage describes the login form for one role; the edge filter has
// already bounced signed-in callers away.
func (api *portalApi) loginPage(ctx echo.Context) error {
	role := ctx.Param("role")
	if !identity.KnownRole(role) {
		return errHttpNotFound
	}

	cb := ctx.QueryParam("callbackUrl")
	if !core.IsLocalPath(cb) {
		cb = ""
	}
	return ctx.JSON(http.StatusOK, LoginPageResponse{Role: role, CallbackURL: cb})
}

func (api *portalApi) login(ctx echo.Context) error {
	role := ctx.Param("role")
	if !identity.KnownRole(role) {
		return errHttpNotFound
	}

	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Login(
		ctx.Request().Context(),
		role, data.Username, data.Password,
		ctx.RealIP(), ctx.Request().UserAgent(),
	)
	if err != nil {
		switch errors.Cause(err) {
		case identity.ErrBadCredentials:
			return errBadCredentials
		case identity.ErrRoleMismatch:
			return errWrongPortal
		}
		// lockouts and other school API verdicts pass through as-is
		return errors.Wrap(err, "signing in")
	}

	setAuthCookies(ctx, api.conf, sess)

	redirectTo := identity.DashboardPath(role)
	if data.CallbackURL != "" {
		redirectTo = data.CallbackURL
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Identity:   sess.Identity,
		Role:       sess.Role(),
		Prefs:      sess.Prefs,
		RedirectTo: redirectTo,
	})
}

// logout never fails from the caller's point of view: a session that is
// already gone, or a school API that is down, still ends with cleared
// cookies and a 200.
func (api *portalApi) logout(ctx echo.Context) error {
	if id := requestSessionID(ctx, api.conf); id != "" {
		if err := api.svc.Logout(ctx.Request().Context(), id); err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "revoking session"))
		}
	}
	clearAuthCookies(ctx, api.conf)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "signed out"})
}

// refresh rotates the access token through the school API and re-issues the
// cookie triple. Clients call it before the access token expires; once it
// has, the edge filter already routes them back to login.
func (api *portalApi) refresh(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	renewed, err := api.svc.Refresh(ctx.Request().Context(), sess.ID)
	if err != nil {
		return errors.Wrap(err, "refreshing session")
	}

	setAuthCookies(ctx, api.conf, renewed)
	return ctx.JSON(http.StatusOK, newSessionResponse(renewed))
}

// revalidate forces a validation round-trip right now; the error page's
// "try again" action. A definitive rejection surfaces as 401 with cookies
// cleared, an unreachable school API as 503 with the degraded banner.
func (api *portalApi) revalidate(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	validated, err := api.svc.Validate(ctx.Request().Context(), sess.ID)
	if err != nil {
		return errors.Wrap(err, "revalidating session")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(validated))
}

func (api *portalApi) getPrefs(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Prefs)
}

func (api *portalApi) updatePrefs(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var data identity.UIPrefs
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UIPrefs")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	updated, err := api.svc.UpdatePrefs(ctx.Request().Context(), sess.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating preferences")
	}
	return ctx.JSON(http.StatusOK, updated.Prefs)
}

type (
	LoginRequest struct {
		Username    string `json:"username" validate:"required"`
		Password    string `json:"password" validate:"required"`
		CallbackURL string `json:"callbackUrl"`
	}

	LoginPageResponse struct {
		Role        string `json:"role"`
		CallbackURL string `json:"callbackUrl"`
	}

	LoginResponse struct {
		Identity   identity.Identity `json:"identity"`
		Role       string            `json:"role"`
		Prefs      identity.UIPrefs  `json:"prefs"`
		RedirectTo string            `json:"redirect_to"`
	}

	SessionResponse struct {
		Identity  identity.Identity `json:"identity"`
		Role      string            `json:"role"`
		Prefs     identity.UIPrefs  `json:"prefs"`
		ExpiresAt time.Time         `json:"expires_at"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username)
	if !core.IsLocalPath(lr.CallbackURL) {
		lr.CallbackURL = "" // foreign redirect targets are dropped, not rejected
	}
	return validate.Struct(lr)
}

func newSessionResponse(sess identity.Session) SessionResponse {
	return SessionResponse{
		Identity:  sess.Identity,
		Role:      sess.Role(),
		Prefs:     sess.Prefs,
		ExpiresAt: sess.ExpiresAt,
	}
}
