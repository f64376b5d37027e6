package echoportal

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/identity"
)

// The cookie triple is the only state the browser holds; session records,
// tokens and preferences all live server-side.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	userRoleCookie     = "user_role"

	contextSessionKey = "session"
)

func newAuthCookie(conf *core.Config, name, value string, expires time.Time, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   conf.Server.CookieDomain,
		Expires:  expires,
		Secure:   conf.Server.SecureCookies,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
}

// setAuthCookies (re)issues the triple for a session. The role cookie stays
// readable by the browser client; the tokens do not.
func setAuthCookies(ctx echo.Context, conf *core.Config, sess identity.Session) {
	ctx.SetCookie(newAuthCookie(conf, accessTokenCookie, sess.Tokens.Access, sess.ExpiresAt, true))
	ctx.SetCookie(newAuthCookie(conf, refreshTokenCookie, sess.Tokens.Refresh, sess.ExpiresAt, true))
	ctx.SetCookie(newAuthCookie(conf, userRoleCookie, sess.Role(), sess.ExpiresAt, false))
}

// clearAuthCookies expires the triple.
func clearAuthCookies(ctx echo.Context, conf *core.Config) {
	past := time.Unix(0, 0).UTC()
	for _, name := range []string{accessTokenCookie, refreshTokenCookie, userRoleCookie} {
		c := newAuthCookie(conf, name, "", past, name != userRoleCookie)
		c.MaxAge = -1
		ctx.SetCookie(c)
	}
}

// cookieValue returns "" when the cookie is absent.
func cookieValue(ctx echo.Context, name string) string {
	if c, err := ctx.Cookie(name); err == nil {
		return c.Value
	}
	return ""
}

// tokenExpired reports whether an access token is past its expiry claim.
// Claims are read WITHOUT signature verification: signature truth lives with
// the school API, the edge only stages traffic. A missing or undecodable
// token counts as expired.
func tokenExpired(token string) bool {
	if token == "" {
		return true
	}
	var claims jwt.StandardClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == 0 {
		return true
	}
	return time.Now().After(time.Unix(claims.ExpiresAt, 0))
}

// requestSessionID derives the session store key from the access token
// cookie; "" when the cookie is absent.
func requestSessionID(ctx echo.Context, conf *core.Config) string {
	token := cookieValue(ctx, accessTokenCookie)
	if token == "" {
		return ""
	}
	return identity.SessionID(conf.SecretKey, token)
}

func getContextSession(ctx echo.Context) (identity.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(identity.Session); ok {
		return sess, nil
	}
	return identity.Session{}, errUnauthorized
}

// contextToken returns the session's bearer token for school API calls.
func contextToken(ctx echo.Context) (string, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return "", err
	}
	return sess.Tokens.Access, nil
}
