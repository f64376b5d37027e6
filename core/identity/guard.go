package identity

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
)

type (
	// HealthMonitor is the slice of the health monitor the guard consults.
	HealthMonitor interface {
		Poke()
		Latest() health.Status
	}

	// Decision is the guard's verdict on one protected request.
	Decision struct {
		State        string
		Session      Session
		RedirectTo   string // non-empty: redirect instead of serving
		ClearCookies bool   // expire the auth cookie triple
		Degraded     bool   // serve, but flag the degraded upstream
	}

	// Guard decides whether requests may enter protected areas. It owns the
	// initializing -> validating -> {authorized, unauthorized, errored}
	// progression of each session.
	Guard struct {
		svc     *Service
		monitor HealthMonitor
		conf    *core.Config
	}
)

func NewGuard(svc *Service, monitor HealthMonitor, conf *core.Config) *Guard {
	return &Guard{svc: svc, monitor: monitor, conf: conf}
}

// Evaluate runs the guard for a request targeting `target` (path + query)
// inside `area` ("admin", "teacher", "student", or "" for any role).
//
// Failure classes stay distinct: a definitive rejection by the school API
// clears the session and redirects to login; an unreachable API keeps the
// caller signed in and only flags the response degraded.
func (g *Guard) Evaluate(ctx context.Context, sessionID, area, target string) Decision {
	// the health probe rides along; it never blocks the decision
	if g.monitor != nil {
		g.monitor.Poke()
	}

	if sessionID == "" {
		return g.unauthorized(area, target)
	}

	sess, err := g.svc.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Cause(err) != ErrSessionNotFound {
			g.svc.logger.Error("loading session", errors.Wrap(err, "loading session"))
		}
		return g.unauthorized(area, target)
	}
	if sess.IsExpired() {
		g.svc.destroy(ctx, sess, "session expired")
		return g.unauthorized(area, target)
	}

	needsValidation := !sess.IsFresh(g.conf.Session.FreshFor)
	if !needsValidation && g.monitor != nil && g.monitor.Latest().AuthDegraded() {
		// the auth subsystem is reported sick: re-check instead of
		// trusting the freshness window
		needsValidation = true
	}

	if needsValidation {
		validated, err := g.svc.Validate(ctx, sessionID)
		if err != nil {
			switch errors.Cause(err) {
			case ErrSessionInvalid, ErrSessionNotFound:
				return g.unauthorized(area, target)
			default:
				// no definitive answer; the caller stays signed in
				return g.roleCheck(sess, area, Decision{State: StateErrored, Degraded: true})
			}
		}
		sess = validated
	}

	return g.roleCheck(sess, area, Decision{State: StateAuthorized})
}

func (g *Guard) unauthorized(area, target string) Decision {
	return Decision{
		State:        StateUnauthorized,
		RedirectTo:   LoginRedirect(area, target),
		ClearCookies: true,
	}
}

// roleCheck fills in the session and redirects callers whose role does not
// belong in the area to their own dashboard.
func (g *Guard) roleCheck(sess Session, area string, dec Decision) Decision {
	dec.Session = sess
	if area != "" && sess.Role() != area {
		dec.RedirectTo = DashboardPath(sess.Role())
	}
	return dec
}

// LoginRedirect builds the login path for an area, carrying the original
// target so the caller lands back where they were headed. Only local paths
// ride along.
func LoginRedirect(area, target string) string {
	p := LoginPath(area)
	if target != "" && core.IsLocalPath(target) {
		p += "?callbackUrl=" + url.QueryEscape(target)
	}
	return p
}
