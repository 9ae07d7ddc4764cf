package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/session"
	"github.com/alimgiray/perfguide/web"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedInState() session.State {
	user := &models.AuthUser{ID: "u1"}
	return session.State{
		User:            user,
		Session:         &models.Session{Token: "tok", User: *user},
		IsAuthenticated: true,
	}
}

func TestDecide(t *testing.T) {
	loading := session.State{IsLoading: true}
	anonymous := session.State{}
	signedIn := signedInState()

	tests := []struct {
		name  string
		state session.State
		opts  GateOptions
		want  Decision
	}{
		{"loading protected", loading, GateOptions{RequireAuth: true}, Decision{Action: GateLoading}},
		{"loading public only", loading, GateOptions{}, Decision{Action: GateLoading}},
		{"anonymous protected", anonymous, GateOptions{RequireAuth: true}, Decision{Action: GateRedirect, Location: "/"}},
		{"anonymous protected custom target", anonymous, GateOptions{RequireAuth: true, RedirectTo: "/auth"}, Decision{Action: GateRedirect, Location: "/auth"}},
		{"anonymous protected with delay", anonymous, GateOptions{RequireAuth: true, RedirectDelay: 2 * time.Second}, Decision{Action: GateRedirect, Location: "/", Delay: 2 * time.Second}},
		{"signed in protected", signedIn, GateOptions{RequireAuth: true}, Decision{Action: GateRender}},
		{"signed in public only", signedIn, GateOptions{RedirectTo: "/dashboard", RedirectDelay: time.Second}, Decision{Action: GateRedirect, Location: "/dashboard"}},
		{"anonymous public only", anonymous, GateOptions{RedirectTo: "/dashboard"}, Decision{Action: GateRender}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state, tt.opts))
		})
	}
}

func gateRouter(t *testing.T, state *session.State, opts GateOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	templates, err := web.Templates()
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(templates)
	router.Use(func(c *gin.Context) {
		if state != nil {
			c.Set(sessionStateKey, *state)
		}
		c.Next()
	})
	router.GET("/page", RouteGate(opts), func(c *gin.Context) {
		c.String(http.StatusOK, "protected content")
	})
	return router
}

func serve(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))
	return w
}

func TestRouteGateRendersChildren(t *testing.T) {
	state := signedInState()
	w := serve(gateRouter(t, &state, GateOptions{RequireAuth: true}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "protected content", w.Body.String())
}

func TestRouteGateRedirectsAnonymous(t *testing.T) {
	state := session.State{}
	w := serve(gateRouter(t, &state, GateOptions{RequireAuth: true, RedirectTo: "/auth"}))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "protected content")
}

func TestRouteGateWithoutSessionMiddleware(t *testing.T) {
	w := serve(gateRouter(t, nil, GateOptions{RequireAuth: true}))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRouteGateDelayedRedirect(t *testing.T) {
	state := session.State{}
	w := serve(gateRouter(t, &state, GateOptions{RequireAuth: true, RedirectDelay: 2 * time.Second}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2;url=/")
	assert.NotContains(t, w.Body.String(), "protected content")
}

func TestRouteGateLoading(t *testing.T) {
	state := session.State{IsLoading: true}
	w := serve(gateRouter(t, &state, GateOptions{RequireAuth: true}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `aria-busy="true"`)
	assert.NotContains(t, w.Body.String(), "protected content")
}

func TestPublicOnlyRedirectsSignedIn(t *testing.T) {
	state := signedInState()
	w := serve(gateRouter(t, &state, GateOptions{RedirectTo: "/dashboard"}))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}
