package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/IlyasAtabaev731/barter-market/internal/lib/jwt"
)

type ctxKey int

const sessionKey ctxKey = iota

func withSession(ctx context.Context, sess *jwt.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// sessionFrom returns the caller's session, or nil for anonymous requests.
func sessionFrom(ctx context.Context) *jwt.Session {
	sess, _ := ctx.Value(sessionKey).(*jwt.Session)
	return sess
}

// userID is only meaningful behind authenticate.
func userID(r *http.Request) string {
	if sess := sessionFrom(r.Context()); sess != nil {
		return sess.UserID
	}
	return ""
}

// readSession resolves the session cookie, falling back to a Bearer token.
func (s *APIServer) readSession(r *http.Request) (*jwt.Session, bool) {
	var token string

	if c, err := r.Cookie(s.config.Session.CookieName); err == nil {
		token = c.Value
	} else if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Split(h, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return nil, false
	}

	sess, err := jwt.ParseToken(token, s.config.Session.Secret)
	if err != nil {
		s.logger.Debug("Rejected session token", "error", err)
		return nil, false
	}

	return sess, true
}

func (s *APIServer) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.readSession(r)
		if !ok {
			s.clearSession(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(withSession(r.Context(), sess)))
	}
}

// optionalSession attaches the session when one is present.
func (s *APIServer) optionalSession(r *http.Request) *http.Request {
	if sess, ok := s.readSession(r); ok {
		return r.WithContext(withSession(r.Context(), sess))
	}
	return r
}

func (s *APIServer) startSession(w http.ResponseWriter, user *models.User) error {
	ttl := s.config.Session.TTL

	token, err := jwt.NewToken(user, s.config.Session.Secret, ttl)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (s *APIServer) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
