package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/aussiebroadwan/nullprofile/pkg/httpx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

// SessionCookieName is the browser session cookie.
const SessionCookieName = "np_session"

type sessionCtxKey struct{}

// SessionManager binds the np_session cookie to the in-memory SessionStore.
type SessionManager struct {
	Sessions *service.SessionStore
	Secure   bool
}

// Middleware resolves the browser session, starting an anonymous one when
// the cookie is missing or its session has expired.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *service.Session
		if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
			if s, ok := m.Sessions.Get(c.Value); ok {
				sess = s
			}
		}

		if sess == nil {
			created, err := m.Sessions.Create()
			if err != nil {
				slogx.FromContext(r.Context()).Error("failed to create session", "error", err)
				authsdk.ErrServerError.WriteError(w)
				return
			}
			sess = created
			m.setCookie(w, sess.ID)
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		if sess.IsAuthenticated() {
			ctx = httpx.WithUserID(ctx, sess.UserID)
			ctx = slogx.With(ctx, "user_id", sess.UserID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser answers 401 unless the session is authenticated. It must run
// inside Middleware.
func (m *SessionManager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFromContext(r.Context()).IsAuthenticated() {
			authsdk.ErrUnauthorized.WriteError(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clear expires the cookie in the browser.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionFromContext(ctx context.Context) *service.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*service.Session)
	return sess
}
