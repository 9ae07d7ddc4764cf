package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alimgiray/perfguide/internal/auth"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	broker   *auth.Broker
	sessions map[string]*models.Session
}

func (s *stubSource) GetSession(ctx context.Context, token string) (*models.Session, error) {
	return s.sessions[token], nil
}

func (s *stubSource) OnAuthStateChange(listener func(models.AuthEvent)) func() {
	return s.broker.Subscribe(listener)
}

func TestSessionMiddlewareResolvesUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	codec := auth.NewCookieCodec("secret-for-session-middleware-tests")
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	source := &stubSource{
		broker: auth.NewBroker(),
		sessions: map[string]*models.Session{
			"tok": {Token: "tok", User: models.AuthUser{ID: "u1", Metadata: models.UserMetadata{UserName: "ada"}}, ExpiresAt: expiresAt},
		},
	}

	router := gin.New()
	router.Use(SessionMiddleware(source, codec, SessionOptions{ResolveTimeout: time.Second}))
	router.GET("/whoami", func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, user.DisplayName()+" "+SessionToken(c))
	})

	t.Run("Valid cookie", func(t *testing.T) {
		value, err := codec.EncodeSession("tok", expiresAt)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "ada tok", w.Body.String())
		assert.Empty(t, w.Header().Get("Set-Cookie"))
		assert.Equal(t, 0, source.broker.Len())
	})

	t.Run("No cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, "anonymous", w.Body.String())
		assert.Empty(t, w.Header().Get("Set-Cookie"))
	})

	t.Run("Tampered cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "not-a-jwt"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "anonymous", w.Body.String())
		assert.Contains(t, w.Header().Get("Set-Cookie"), "session=;")
	})
}

type failingEncoder struct {
	*auth.CookieCodec
}

func (failingEncoder) EncodeSession(string, time.Time) (string, error) {
	return "", errors.New("signing key unavailable")
}

func TestSessionMiddlewareLogsCookieRefreshFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	codec := auth.NewCookieCodec("secret-for-session-middleware-tests")
	cookieExpiry := time.Now().Add(time.Hour).Truncate(time.Second)
	source := &stubSource{
		broker: auth.NewBroker(),
		sessions: map[string]*models.Session{
			"tok": {Token: "tok", User: models.AuthUser{ID: "u1"}, ExpiresAt: cookieExpiry.Add(2 * time.Hour)},
		},
	}

	router := gin.New()
	router.Use(SessionMiddleware(source, failingEncoder{codec}, SessionOptions{ResolveTimeout: time.Second}))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, SessionToken(c))
	})

	value, err := codec.EncodeSession("tok", cookieExpiry)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: value})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "tok", w.Body.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	assert.Contains(t, buf.String(), "Failed to refresh session cookie")
	assert.Contains(t, buf.String(), "signing key unavailable")
}
