package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/repositories"
	"github.com/alimgiray/perfguide/internal/services"
	"github.com/alimgiray/perfguide/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newFakeGitHub serves the OAuth token endpoint and the two REST calls used
// to build a profile
func newFakeGitHub(t *testing.T, publicEmail string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_test",
			"token_type":   "bearer",
			"scope":        "read:user,user:email",
		})
	})
	mux.HandleFunc("/api/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         4242,
			"login":      "octocat",
			"name":       "The Octocat",
			"email":      publicEmail,
			"avatar_url": "https://avatars.example.com/4242",
		})
	})
	mux.HandleFunc("/api/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "primary@example.com", "primary": true, "verified": true},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(t *testing.T, server *httptest.Server) (*GitHubProvider, *repositories.SessionRepository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions := repositories.NewSessionRepository(db)
	users := services.NewUserService(repositories.NewUserRepository(db))
	provider := NewGitHubProvider(GitHubOptions{
		ClientID:      "client",
		ClientSecret:  "secret",
		CallbackURL:   "http://localhost/auth/github/callback",
		APIURL:        server.URL + "/api",
		SessionTTL:    24 * time.Hour,
		RefreshWindow: 6 * time.Hour,
		Endpoint: &oauth2.Endpoint{
			AuthURL:  server.URL + "/login/oauth/authorize",
			TokenURL: server.URL + "/login/oauth/access_token",
		},
	}, users, sessions)
	return provider, sessions
}

func recordEvents(provider *GitHubProvider) *[]models.AuthEvent {
	var events []models.AuthEvent
	provider.OnAuthStateChange(func(e models.AuthEvent) { events = append(events, e) })
	return &events
}

func TestSignInWithOAuth(t *testing.T) {
	provider, _ := newTestProvider(t, newFakeGitHub(t, ""))

	t.Run("GitHub with default scopes", func(t *testing.T) {
		result, err := provider.SignInWithOAuth(SignInOptions{Provider: ProviderGitHub, RedirectTo: "/gitlab"})
		require.NoError(t, err)

		authURL, err := url.Parse(result.URL)
		require.NoError(t, err)
		query := authURL.Query()
		assert.Equal(t, "client", query.Get("client_id"))
		assert.Equal(t, "read:user user:email", query.Get("scope"))
		assert.Equal(t, result.State, query.Get("state"))
		assert.Equal(t, "/gitlab", result.RedirectTo)
	})

	t.Run("Custom scopes and unsafe redirect", func(t *testing.T) {
		result, err := provider.SignInWithOAuth(SignInOptions{
			Provider:   ProviderGitHub,
			RedirectTo: "https://elsewhere.example.com",
			Scopes:     []string{"read:user"},
		})
		require.NoError(t, err)

		authURL, err := url.Parse(result.URL)
		require.NoError(t, err)
		assert.Equal(t, "read:user", authURL.Query().Get("scope"))
		assert.Equal(t, "/", result.RedirectTo)
	})

	t.Run("Unsupported provider", func(t *testing.T) {
		_, err := provider.SignInWithOAuth(SignInOptions{Provider: "gitlab"})
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})
}

func TestExchangeCreatesSession(t *testing.T) {
	provider, _ := newTestProvider(t, newFakeGitHub(t, ""))
	events := recordEvents(provider)

	session, err := provider.Exchange(context.Background(), "good-code")
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "primary@example.com", session.User.Email)
	assert.Equal(t, "The Octocat", session.User.Metadata.FullName)
	assert.Equal(t, "octocat", session.User.Metadata.UserName)
	assert.Equal(t, "https://avatars.example.com/4242", session.User.Metadata.AvatarURL)

	require.Len(t, *events, 1)
	assert.Equal(t, models.AuthEventSignedIn, (*events)[0].Type)
	assert.Equal(t, session.Token, (*events)[0].Token)

	loaded, err := provider.GetSession(context.Background(), session.Token)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, session.User, loaded.User)
}

func TestExchangeUsesPublicEmail(t *testing.T) {
	provider, _ := newTestProvider(t, newFakeGitHub(t, "public@example.com"))

	session, err := provider.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "public@example.com", session.User.Email)
}

func TestExchangeFailures(t *testing.T) {
	provider, _ := newTestProvider(t, newFakeGitHub(t, ""))

	_, err := provider.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCode)

	_, err = provider.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestGetSessionLifecycle(t *testing.T) {
	provider, sessions := newTestProvider(t, newFakeGitHub(t, ""))
	ctx := context.Background()

	session, err := provider.Exchange(ctx, "good-code")
	require.NoError(t, err)
	events := recordEvents(provider)

	t.Run("Unknown and empty tokens", func(t *testing.T) {
		missing, err := provider.GetSession(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, missing)

		empty, err := provider.GetSession(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, empty)
	})

	t.Run("Fresh session is not refreshed", func(t *testing.T) {
		_, err := provider.GetSession(ctx, session.Token)
		require.NoError(t, err)
		assert.Empty(t, *events)
	})

	t.Run("Session inside the refresh window slides", func(t *testing.T) {
		provider.now = func() time.Time { return time.Now().Add(20 * time.Hour) }
		defer func() { provider.now = time.Now }()

		refreshed, err := provider.GetSession(ctx, session.Token)
		require.NoError(t, err)
		require.NotNil(t, refreshed)
		assert.True(t, refreshed.ExpiresAt.After(session.ExpiresAt))

		require.Len(t, *events, 1)
		assert.Equal(t, models.AuthEventTokenRefreshed, (*events)[0].Type)
	})

	t.Run("Expired session is removed", func(t *testing.T) {
		provider.now = func() time.Time { return time.Now().Add(72 * time.Hour) }
		defer func() { provider.now = time.Now }()

		expired, err := provider.GetSession(ctx, session.Token)
		require.NoError(t, err)
		assert.Nil(t, expired)

		_, err = sessions.GetByToken(session.Token)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestSignOut(t *testing.T) {
	provider, _ := newTestProvider(t, newFakeGitHub(t, ""))
	ctx := context.Background()

	session, err := provider.Exchange(ctx, "good-code")
	require.NoError(t, err)
	events := recordEvents(provider)

	require.NoError(t, provider.SignOut(ctx, session.Token))

	gone, err := provider.GetSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.Len(t, *events, 1)
	assert.Equal(t, models.AuthEventSignedOut, (*events)[0].Type)
	assert.Equal(t, session.Token, (*events)[0].Token)
	assert.Nil(t, (*events)[0].Session)

	assert.NoError(t, provider.SignOut(ctx, ""))
}
