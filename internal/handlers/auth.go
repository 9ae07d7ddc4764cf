package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/alimgiray/perfguide/internal/auth"
	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/gin-gonic/gin"
)

// AuthBackend is the subset of the auth provider the handlers drive
type AuthBackend interface {
	SignInWithOAuth(opts auth.SignInOptions) (*auth.SignInResult, error)
	Exchange(ctx context.Context, code string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
}

const defaultAfterLogin = "/dashboard"

var loginErrors = map[string]string{
	"no_code":                 "GitHub did not return an authorization code.",
	"access_denied":           "GitHub sign-in was cancelled.",
	"invalid_state":           "Your sign-in request expired. Please try again.",
	"token_exchange_failed":   "Failed to login with GitHub.",
	"user_info_failed":        "Could not read your GitHub profile.",
	"session_creation_failed": "Could not start a session.",
}

type AuthHandler struct {
	backend      AuthBackend
	codec        *auth.CookieCodec
	cookieSecure bool
}

func NewAuthHandler(backend AuthBackend, codec *auth.CookieCodec, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		backend:      backend,
		codec:        codec,
		cookieSecure: cookieSecure,
	}
}

// Login handles the sign-in page
func (h *AuthHandler) Login(c *gin.Context) {
	var errorMsg string
	if code := c.Query("error"); code != "" {
		errorMsg = loginErrors[code]
		if errorMsg == "" {
			errorMsg = loginErrors["token_exchange_failed"]
		}
	}

	data := gin.H{
		"Title":      "Sign in",
		"User":       middleware.CurrentUser(c),
		"Error":      errorMsg,
		"RedirectTo": auth.SafeRedirect(c.Query("redirect_to"), defaultAfterLogin),
	}

	c.HTML(http.StatusOK, "auth", data)
}

// LoginAlias sends legacy sign-in URLs to the sign-in page
func (h *AuthHandler) LoginAlias(c *gin.Context) {
	c.Redirect(http.StatusFound, "/auth")
}

// Logout ends the session and clears the cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.backend.SignOut(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		logger.WithError(err).Error("Failed to sign out")
	}
	middleware.ClearSessionCookie(c, h.cookieSecure)
	c.Redirect(http.StatusFound, "/")
}

// GitHubLogin initiates GitHub OAuth flow
func (h *AuthHandler) GitHubLogin(c *gin.Context) {
	result, err := h.backend.SignInWithOAuth(auth.SignInOptions{
		Provider:   auth.ProviderGitHub,
		RedirectTo: c.DefaultQuery("redirect_to", defaultAfterLogin),
	})
	if err != nil {
		logger.WithError(err).Error("Failed to start GitHub sign-in")
		c.Redirect(http.StatusFound, "/auth?error=token_exchange_failed")
		return
	}

	state, err := h.codec.EncodeState(result.State, result.RedirectTo)
	if err != nil {
		logger.WithError(err).Error("Failed to encode OAuth state")
		c.Redirect(http.StatusFound, "/auth?error=token_exchange_failed")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.StateCookieName, state, auth.StateMaxAge(), "/auth/github", "", h.cookieSecure, true)
	c.Redirect(http.StatusTemporaryRedirect, result.URL)
}

// GitHubCallback handles GitHub OAuth callback
func (h *AuthHandler) GitHubCallback(c *gin.Context) {
	if c.Query("error") != "" {
		c.Redirect(http.StatusFound, "/auth?error=access_denied")
		return
	}

	stateCookie, _ := c.Cookie(auth.StateCookieName)
	c.SetCookie(auth.StateCookieName, "", -1, "/auth/github", "", h.cookieSecure, true)

	redirectTo, err := h.codec.VerifyState(stateCookie, c.Query("state"))
	if err != nil {
		logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Rejected OAuth callback")
		c.Redirect(http.StatusFound, "/auth?error=invalid_state")
		return
	}

	session, err := h.backend.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		logger.WithError(err).Warn("GitHub sign-in failed")
		c.Redirect(http.StatusFound, "/auth?error="+callbackErrorCode(err))
		return
	}

	if err := middleware.SetSessionCookie(c, h.codec, session, h.cookieSecure); err != nil {
		logger.WithError(err).Error("Failed to write session cookie")
		c.Redirect(http.StatusFound, "/auth?error=session_creation_failed")
		return
	}

	c.Redirect(http.StatusFound, auth.SafeRedirect(redirectTo, defaultAfterLogin))
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCode):
		return "no_code"
	case errors.Is(err, auth.ErrTokenExchange):
		return "token_exchange_failed"
	case errors.Is(err, auth.ErrUserInfo):
		return "user_info_failed"
	default:
		return "session_creation_failed"
	}
}
