/*
session.go - Admin session gate

PURPOSE:
  Keeps the "authenticated admin" marker for the admin panel. The marker is
  an HS256-signed JWT in an HttpOnly cookie carrying the admin username as
  subject, a random token ID, and an expiry. Nothing is stored server-side,
  so any instance sharing the secret accepts the session.

GATES:
  RequireAdminAPI    missing or invalid session -> 403 JSON envelope
  RequireAdminPage   missing or invalid session -> redirect to /admin

LOGOUT:
  Clearing the cookie ends the session in the browser. Tokens are not
  revoked; a copied token stays valid until it expires.
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Mgdadali/249-subsite/tracking"
)

// SessionCookie is the name of the admin session cookie.
const SessionCookie = "tracker_session"

const sessionIssuer = "tracker"

type adminKey struct{}

// Sessions signs and verifies admin session cookies.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a session gate signing with secret.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a session for username and sets the cookie.
func (s *Sessions) Issue(w http.ResponseWriter, r *http.Request, username string) error {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    sessionIssuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(s.ttl),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Admin returns the username of a valid session on r.
func (s *Sessions) Admin(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	username, err := s.verify(c.Value)
	if err != nil {
		return "", false
	}
	return username, true
}

func (s *Sessions) verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("session has no subject")
	}
	return claims.Subject, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// RequireAdminAPI rejects requests without a session with a 403 envelope.
func (s *Sessions) RequireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := s.Admin(r)
		if !ok {
			writeError(w, fmt.Errorf("%w: admin session required", tracking.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, username)))
	})
}

// RequireAdminPage redirects requests without a session to the login page.
func (s *Sessions) RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := s.Admin(r)
		if !ok {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, username)))
	})
}

// AdminFromContext returns the admin username set by a gate.
func AdminFromContext(ctx context.Context) string {
	username, _ := ctx.Value(adminKey{}).(string)
	return username
}
