package middleware

import (
	"context"
	"net/http"
	"time"

	"ylabs/internal/app"
	"ylabs/internal/common"
	"ylabs/internal/http/response"
	"ylabs/internal/security"
)

type contextKey string

const (
	contextCallerKey    contextKey = "caller"
	contextRequestIDKey contextKey = "request_id"
)

// CallerResolver loads the acting user for a verified netid.
type CallerResolver interface {
	Caller(ctx context.Context, netid string) (app.Caller, error)
}

type SessionAuth struct {
	sessions *security.SessionProvider
	users    CallerResolver
	secure   bool
}

// NewSessionAuth builds the cookie session middleware. secure marks cookies
// as HTTPS only.
func NewSessionAuth(sessions *security.SessionProvider, users CallerResolver, secure bool) *SessionAuth {
	return &SessionAuth{sessions: sessions, users: users, secure: secure}
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "Unauthorized", nil)
}

// Resolve returns the caller of a request carrying a valid session. A session
// for a user that no longer exists is treated as absent.
func (m *SessionAuth) Resolve(r *http.Request) (app.Caller, error) {
	cookie, err := r.Cookie(security.SessionCookie)
	if err != nil || cookie.Value == "" {
		return app.Caller{}, errUnauthorized()
	}
	netid, err := m.sessions.Parse(cookie.Value)
	if err != nil {
		return app.Caller{}, common.NewError(common.CodeUnauthorized, "Unauthorized", err)
	}
	caller, err := m.users.Caller(r.Context(), netid)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return app.Caller{}, common.NewError(common.CodeUnauthorized, "Unauthorized", err)
		}
		return app.Caller{}, err
	}
	return caller, nil
}

func (m *SessionAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := m.Resolve(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func (m *SessionAuth) SetSession(w http.ResponseWriter, netid string) error {
	token, expiresAt, err := m.sessions.Issue(netid)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to issue session", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     security.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.sessions.TTL() / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *SessionAuth) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     security.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func WithCaller(ctx context.Context, caller app.Caller) context.Context {
	return context.WithValue(ctx, contextCallerKey, caller)
}

func CallerFromContext(ctx context.Context) (app.Caller, bool) {
	caller, ok := ctx.Value(contextCallerKey).(app.Caller)
	return caller, ok
}
