// Package auth issues and validates the signed session token carried in the
// browser cookie. The token embeds the user's role and a permission list,
// but the embedded list is a hint only: route authorization re-resolves
// permissions from the datastore and treats the cookie as identity proof.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/menuforge/menuforge/pkg/permissions"
)

// DefaultCookieName is the session cookie name
const DefaultCookieName = "menuforge_session"

// ErrNoSession indicates the request carried no session cookie at all.
// This is the legitimate logged-out state, distinct from a corrupt token.
var ErrNoSession = errors.New("no session cookie")

// InvalidSessionError indicates a present but unusable session token:
// tampered signature, unparsable payload, or expired. Callers clear the
// cookie and force re-authentication.
type InvalidSessionError struct {
	Reason string
}

func (e *InvalidSessionError) Error() string {
	return "invalid session: " + e.Reason
}

// Session is the authenticated principal decoded from the cookie
type Session struct {
	UserID      int64                    `json:"id"`
	Email       string                   `json:"email,omitempty"`
	Role        permissions.Role         `json:"role"`
	Permissions []permissions.Permission `json:"permissions"`
	IssuedAt    int64                    `json:"iat"`
	ExpiresAt   int64                    `json:"exp"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}

// SessionManager signs, verifies, and manages session cookies
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
}

// NewSessionManager creates a session manager. The secret must be non-empty;
// everything downstream trusts the HMAC it produces.
func NewSessionManager(secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: DefaultCookieName,
		secure:     secure,
	}, nil
}

// Issue creates a session for a resolved user. The permission list stored in
// the token is a snapshot hint for UI rendering.
func (m *SessionManager) Issue(userID int64, email string, role permissions.Role, perms []permissions.Permission) *Session {
	now := time.Now()
	return &Session{
		UserID:      userID,
		Email:       email,
		Role:        role,
		Permissions: perms,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(m.ttl).Unix(),
	}
}

// Encode serializes and signs a session into a cookie value
func (m *SessionManager) Encode(s *Session) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + m.sign(encoded), nil
}

// Decode verifies and deserializes a cookie value into a session
func (m *SessionManager) Decode(token string) (*Session, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, &InvalidSessionError{Reason: "malformed token"}
	}

	if !hmac.Equal([]byte(m.sign(parts[0])), []byte(parts[1])) {
		return nil, &InvalidSessionError{Reason: "signature mismatch"}
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, &InvalidSessionError{Reason: "bad encoding"}
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, &InvalidSessionError{Reason: "unparsable payload"}
	}

	if s.Expired(time.Now()) {
		return nil, &InvalidSessionError{Reason: "expired"}
	}

	return &s, nil
}

// FromRequest extracts the session from the request cookie. Returns
// ErrNoSession when no cookie is present, or *InvalidSessionError when the
// cookie exists but cannot be trusted.
func (m *SessionManager) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.Decode(cookie.Value)
}

// SetCookie writes the signed session cookie on the response
func (m *SessionManager) SetCookie(w http.ResponseWriter, s *Session) error {
	value, err := m.Encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Unix(s.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie. Used on logout and whenever a
// corrupt credential is detected.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
