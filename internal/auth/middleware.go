package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// CookieName is the session cookie.
const CookieName = "session_id"

type contextKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(contextKey{}).(core.User)
	return u, ok
}

// Authenticator resolves the session cookie into a user.
type Authenticator struct {
	sessions *SessionStore
	users    ports.UserStore
	secure   bool
}

func NewAuthenticator(sessions *SessionStore, users ports.UserStore, secureCookies bool) *Authenticator {
	return &Authenticator{sessions: sessions, users: users, secure: secureCookies}
}

// LoadUser attaches the session's user to the request context when the
// cookie is valid. It never rejects a request.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := a.sessions.Lookup(c.Value)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		u, err := a.users.UserByID(r.Context(), sess.UserID)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load session user",
					log.FieldUserID, sess.UserID, log.FieldError, err)
			}
			a.sessions.Destroy(c.Value)
			next.ServeHTTP(w, r)
			return
		}
		ctx := WithUser(r.Context(), u)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePage redirects anonymous visitors to the login page.
func RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", target)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPI answers 401 with a JSON body for anonymous API calls.
func RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartSession creates a session for u and sets the cookie.
func (a *Authenticator) StartSession(w http.ResponseWriter, u core.User) Session {
	sess := a.sessions.Create(u.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(a.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// EndSession destroys the request's session and expires the cookie.
func (a *Authenticator) EndSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		a.sessions.Destroy(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
