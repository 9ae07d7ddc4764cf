package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/alimgiray/perfguide/internal/auth"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/session"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey      = "session"
	sessionStateKey = "session_state"
	sessionTokenKey = "session_token"
)

// SessionCodec signs and reads the session cookie
type SessionCodec interface {
	EncodeSession(token string, expiresAt time.Time) (string, error)
	DecodeSession(value string) (string, time.Time, error)
}

type SessionOptions struct {
	// ResolveTimeout bounds how long a request waits for the session to
	// resolve before it is served in the loading state.
	ResolveTimeout time.Duration
	CookieSecure   bool
}

// SessionMiddleware resolves the session cookie through a per-request
// provider and stores the resulting state in the context
func SessionMiddleware(source session.Source, codec SessionCodec, opts SessionOptions) gin.HandlerFunc {
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 2 * time.Second
	}

	return func(c *gin.Context) {
		token, cookieExpiry, hadCookie := readSessionCookie(c, codec)

		provider := session.NewProvider(source, token)
		provider.Start(c.Request.Context())
		defer provider.Stop()

		ctx, cancel := context.WithTimeout(c.Request.Context(), opts.ResolveTimeout)
		settled := provider.Wait(ctx)
		cancel()
		if !settled {
			logger.WithField("path", c.Request.URL.Path).Warn("Session did not resolve in time")
		}

		state := provider.State()
		c.Set(sessionStateKey, state)
		c.Set(sessionTokenKey, token)
		if state.Session != nil {
			c.Set(sessionKey, state.Session)
			// the backend slides the expiry inside its refresh window
			if state.Session.ExpiresAt.Sub(cookieExpiry) > time.Minute {
				if err := SetSessionCookie(c, codec, state.Session, opts.CookieSecure); err != nil {
					logger.WithError(err).Error("Failed to refresh session cookie")
				}
			}
		} else if hadCookie && !state.IsLoading {
			ClearSessionCookie(c, opts.CookieSecure)
		}

		c.Next()
	}
}

func readSessionCookie(c *gin.Context, codec SessionCodec) (string, time.Time, bool) {
	value, err := c.Cookie(auth.SessionCookieName)
	if err != nil || value == "" {
		return "", time.Time{}, false
	}

	token, expiresAt, err := codec.DecodeSession(value)
	if err != nil {
		logger.WithError(err).Debugf("Ignoring invalid session cookie")
		return "", time.Time{}, true
	}
	return token, expiresAt, true
}

// SetSessionCookie writes the signed cookie for session
func SetSessionCookie(c *gin.Context, codec SessionCodec, s *models.Session, secure bool) error {
	value, err := codec.EncodeSession(s.Token, s.ExpiresAt)
	if err != nil {
		return err
	}

	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, value, maxAge, "/", "", secure, true)
	return nil
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", secure, true)
}

// GetSession retrieves the resolved session from context
func GetSession(c *gin.Context) *models.Session {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}

	if s, ok := value.(*models.Session); ok {
		return s
	}

	return nil
}

// CurrentUser returns the signed-in user, or nil
func CurrentUser(c *gin.Context) *models.AuthUser {
	s := GetSession(c)
	if s == nil {
		return nil
	}
	user := s.User
	return &user
}

// GetSessionState returns the provider snapshot. Without SessionMiddleware
// the request counts as settled and anonymous.
func GetSessionState(c *gin.Context) session.State {
	value, exists := c.Get(sessionStateKey)
	if !exists {
		return session.State{}
	}
	if state, ok := value.(session.State); ok {
		return state
	}
	return session.State{}
}

// SessionToken returns the raw token carried by the request cookie
func SessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}
