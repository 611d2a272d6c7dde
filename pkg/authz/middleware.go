package authz

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/menuforge/menuforge/pkg/auth"
	"github.com/menuforge/menuforge/pkg/contextkeys"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/permissions"
)

// Resolver loads the authoritative permission state for a user. The session
// cookie carries a permission hint, but route decisions re-resolve from the
// datastore so revocations take effect without waiting for cookie expiry.
type Resolver interface {
	ResolveUser(ctx context.Context, userID int64) (permissions.Resolution, error)
}

// Middleware enforces the route table on dashboard requests
type Middleware struct {
	sessions  *auth.SessionManager
	resolver  Resolver
	table     *RouteTable
	logger    *observability.Logger
	metrics   *observability.Metrics
	signInURL string
	deniedURL string
}

// NewMiddleware creates the route authorization middleware
func NewMiddleware(sessions *auth.SessionManager, resolver Resolver, table *RouteTable, logger *observability.Logger, metrics *observability.Metrics) *Middleware {
	return &Middleware{
		sessions:  sessions,
		resolver:  resolver,
		table:     table,
		logger:    logger,
		metrics:   metrics,
		signInURL: "/auth/login",
		deniedURL: "/access-denied",
	}
}

// Handler wraps a protected handler tree. Requests without a session are
// redirected to sign-in with the original path preserved; corrupt sessions
// additionally have their cookie cleared. Authorization uses the permission
// set re-resolved from the datastore, falling back to the cookie hint only
// when the resolver is unavailable.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessions.FromRequest(r)
		if err != nil {
			m.rejectSession(w, r, err)
			return
		}

		res, rerr := m.resolver.ResolveUser(r.Context(), session.UserID)
		if rerr != nil {
			m.logger.WithError(rerr).WithField("user_id", session.UserID).
				Warn("permission resolution failed, using session hint")
			res = permissions.Resolve(session.Role, session.Permissions)
		}

		guard := NewGuard(res)
		if err := guard.Authorize(m.table, r.URL.Path); err != nil {
			var denied *AccessDeniedError
			if errors.As(err, &denied) {
				m.metrics.AuthzDecisionsTotal.WithLabelValues(string(denied.Kind)).Inc()
				m.logger.WithField("user_id", session.UserID).
					WithField("path", r.URL.Path).
					WithField("kind", string(denied.Kind)).
					Info("access denied")
			}
			http.Redirect(w, r, m.deniedURL, http.StatusSeeOther)
			return
		}

		m.metrics.AuthzDecisionsTotal.WithLabelValues("allowed").Inc()

		ctx := contextkeys.WithValue(r.Context(), contextkeys.SessionKey, session)
		ctx = contextkeys.WithValue(ctx, contextkeys.GuardKey, guard)
		ctx = observability.WithUserID(ctx, strconv.FormatInt(session.UserID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission wraps a single handler with one explicit permission
// check, for routes that sit outside the prefix table.
func (m *Middleware) RequirePermission(p permissions.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessions.FromRequest(r)
		if err != nil {
			m.rejectSession(w, r, err)
			return
		}

		res, rerr := m.resolver.ResolveUser(r.Context(), session.UserID)
		if rerr != nil {
			res = permissions.Resolve(session.Role, session.Permissions)
		}

		guard := NewGuard(res)
		if !guard.HasPermission(p) {
			m.metrics.PermissionChecksTotal.WithLabelValues("denied").Inc()
			http.Redirect(w, r, m.deniedURL, http.StatusSeeOther)
			return
		}
		m.metrics.PermissionChecksTotal.WithLabelValues("allowed").Inc()

		ctx := contextkeys.WithValue(r.Context(), contextkeys.SessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rejectSession handles both the logged-out and the corrupt-cookie paths.
// A corrupt cookie is cleared before redirecting so the browser does not
// resend it forever.
func (m *Middleware) rejectSession(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *auth.InvalidSessionError
	if errors.As(err, &invalid) {
		m.metrics.SessionFailuresTotal.WithLabelValues("invalid").Inc()
		m.logger.WithField("reason", invalid.Reason).Warn("clearing corrupt session cookie")
		m.sessions.ClearCookie(w)
	} else {
		m.metrics.SessionFailuresTotal.WithLabelValues("absent").Inc()
	}
	http.Redirect(w, r, m.signInURL+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

// SessionFromContext retrieves the session injected by the middleware
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	session, ok := contextkeys.Value(ctx, contextkeys.SessionKey).(*auth.Session)
	return session, ok
}

// GuardFromContext retrieves the permission guard injected by the middleware
func GuardFromContext(ctx context.Context) (*Guard, bool) {
	guard, ok := contextkeys.Value(ctx, contextkeys.GuardKey).(*Guard)
	return guard, ok
}
