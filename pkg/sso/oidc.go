// Package sso handles dashboard sign-in through an OpenID Connect provider.
// A successful callback provisions the account on first sign-in and issues
// the signed session cookie.
package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/menuforge/menuforge/pkg/auth"
	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/users"
)

const stateCookieName = "menuforge_oauth_state"

// Config holds OIDC provider settings
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Handler implements the login, callback, and logout endpoints
type Handler struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	sessions     *auth.SessionManager
	users        *users.Service
	logger       *observability.Logger
}

// NewHandler discovers the OIDC provider and creates the sign-in handler
func NewHandler(ctx context.Context, cfg Config, sessions *auth.SessionManager, userSvc *users.Service, logger *observability.Logger) (*Handler, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Handler{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		sessions: sessions,
		users:    userSvc,
		logger:   logger,
	}, nil
}

// RegisterRoutes registers the auth endpoints
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.HandleLogin).Methods("GET")
	router.HandleFunc("/auth/callback", h.HandleCallback).Methods("GET")
	router.HandleFunc("/auth/logout", h.HandleLogout).Methods("POST", "GET")
}

// HandleLogin starts the authorization code flow. The post-login destination
// travels inside the state value so the callback can restore it.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	nonce, err := randomToken()
	if err != nil {
		httputil.WriteInternalError(w, "failed to start sign-in")
		return
	}

	next := r.URL.Query().Get("next")
	if !safeNext(next) {
		next = "/dashboard"
	}
	state := nonce + "|" + next

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth2Config.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback finishes the code flow: verifies state, exchanges the code,
// verifies the ID token, provisions the account if needed, and sets the
// session cookie.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	next, err := h.checkState(r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "missing authorization code")
		return
	}

	token, err := h.oauth2Config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).Warn("oauth code exchange failed")
		httputil.WriteUnauthorized(w, "sign-in failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		httputil.WriteUnauthorized(w, "missing id_token")
		return
	}

	idToken, err := h.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		h.logger.WithError(err).Warn("id token verification failed")
		httputil.WriteUnauthorized(w, "sign-in failed")
		return
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
		httputil.WriteUnauthorized(w, "token carries no email")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), claims.Email)
	if errors.Is(err, users.ErrUserNotFound) {
		user, err = h.users.Register(r.Context(), claims.Email, claims.Name)
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to load or provision user")
		httputil.WriteInternalError(w, "sign-in failed")
		return
	}

	res, err := h.users.ResolveUser(r.Context(), user.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to resolve permissions at sign-in")
		httputil.WriteInternalError(w, "sign-in failed")
		return
	}

	session := h.sessions.Issue(user.ID, user.Email, user.Role, res.Permissions.List())
	if err := h.sessions.SetCookie(w, session); err != nil {
		httputil.WriteInternalError(w, "failed to establish session")
		return
	}

	// Clear the state cookie.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	h.logger.WithField("user_id", user.ID).Info("user signed in")
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout clears the session cookie
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) checkState(r *http.Request) (string, error) {
	state := r.URL.Query().Get("state")
	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed state")
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != parts[0] {
		return "", fmt.Errorf("state mismatch")
	}

	next := parts[1]
	if !safeNext(next) {
		next = "/dashboard"
	}
	return next, nil
}

// safeNext allows only same-site absolute paths as post-login destinations
func safeNext(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Host == "" && u.Scheme == ""
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
