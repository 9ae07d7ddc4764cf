package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/repositories"
	"github.com/alimgiray/perfguide/internal/services"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
)

const ProviderGitHub = "github"

var (
	ErrUnsupportedProvider = errors.New("unsupported auth provider")
	ErrMissingCode         = errors.New("authorization code missing")
	ErrTokenExchange       = errors.New("failed to exchange code for token")
	ErrUserInfo            = errors.New("failed to load GitHub profile")
	ErrSessionCreate       = errors.New("failed to create session")
)

// DefaultScopes are requested when SignInOptions leaves Scopes empty
var DefaultScopes = []string{"read:user", "user:email"}

type SignInOptions struct {
	Provider   string
	RedirectTo string
	Scopes     []string
}

// SignInResult tells the caller where to send the browser and which state to remember
type SignInResult struct {
	URL        string
	State      string
	RedirectTo string
}

type UserStore interface {
	UpsertGitHubUser(profile services.GitHubProfile) (*models.User, error)
}

type SessionStore interface {
	Create(record *repositories.SessionRecord) error
	GetByToken(token string) (*repositories.SessionRecord, error)
	Extend(token string, expiresAt time.Time) error
	Delete(token string) error
}

// ProfileFetcher loads the signed-in account using an OAuth-authorized client
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, client *http.Client) (*services.GitHubProfile, error)
}

type GitHubOptions struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	APIURL        string
	SessionTTL    time.Duration
	RefreshWindow time.Duration
	// Endpoint overrides the GitHub OAuth endpoint.
	Endpoint *oauth2.Endpoint
}

// GitHubProvider is the auth backend: GitHub OAuth sign-in with sessions
// kept in the local store.
type GitHubProvider struct {
	oauthConfig   *oauth2.Config
	users         UserStore
	sessions      SessionStore
	profiles      ProfileFetcher
	broker        *Broker
	sessionTTL    time.Duration
	refreshWindow time.Duration
	now           func() time.Time
}

func NewGitHubProvider(opts GitHubOptions, users UserStore, sessions SessionStore) *GitHubProvider {
	endpoint := oauthgithub.Endpoint
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	return &GitHubProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.CallbackURL,
			Scopes:       DefaultScopes,
			Endpoint:     endpoint,
		},
		users:         users,
		sessions:      sessions,
		profiles:      &GoGitHubProfiles{APIURL: opts.APIURL},
		broker:        NewBroker(),
		sessionTTL:    opts.SessionTTL,
		refreshWindow: opts.RefreshWindow,
		now:           time.Now,
	}
}

// SignInWithOAuth builds the provider authorization URL for a fresh state value
func (p *GitHubProvider) SignInWithOAuth(opts SignInOptions) (*SignInResult, error) {
	if opts.Provider != ProviderGitHub {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, opts.Provider)
	}

	cfg := *p.oauthConfig
	if len(opts.Scopes) > 0 {
		cfg.Scopes = opts.Scopes
	}

	state := uuid.NewString()
	return &SignInResult{
		URL:        cfg.AuthCodeURL(state),
		State:      state,
		RedirectTo: SafeRedirect(opts.RedirectTo, "/"),
	}, nil
}

// Exchange completes the OAuth flow and opens a session
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	profile, err := p.profiles.FetchProfile(ctx, p.oauthConfig.Client(ctx, token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	profile.AccessToken = token.AccessToken

	user, err := p.users.UpsertGitHubUser(*profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}

	now := p.now().UTC()
	record := &repositories.SessionRecord{
		Token:     uuid.NewString(),
		UserID:    user.ID.String(),
		CreatedAt: now,
		ExpiresAt: now.Add(p.sessionTTL),
		User:      user,
	}
	if err := p.sessions.Create(record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}

	session := toSession(record)
	logger.WithField("user_id", user.ID.String()).Info("User signed in with GitHub")
	p.publish(models.AuthEventSignedIn, session.Token, session)
	return session, nil
}

// GetSession resolves a session token. Unknown or expired tokens yield a nil
// session without error; sessions inside the refresh window are extended.
func (p *GitHubProvider) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	record, err := p.sessions.GetByToken(token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := p.now().UTC()
	if !now.Before(record.ExpiresAt) {
		if err := p.sessions.Delete(token); err != nil {
			logger.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, nil
	}

	refreshed := false
	if p.refreshWindow > 0 && record.ExpiresAt.Sub(now) < p.refreshWindow {
		expiresAt := now.Add(p.sessionTTL)
		if err := p.sessions.Extend(token, expiresAt); err != nil {
			logger.WithError(err).Warn("Failed to extend session")
		} else {
			record.ExpiresAt = expiresAt
			refreshed = true
		}
	}

	session := toSession(record)
	if refreshed {
		p.publish(models.AuthEventTokenRefreshed, token, session)
	}
	return session, nil
}

// SignOut destroys the session. Signing out an unknown token is a no-op apart
// from the event.
func (p *GitHubProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := p.sessions.Delete(token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	p.publish(models.AuthEventSignedOut, token, nil)
	return nil
}

// OnAuthStateChange subscribes to session changes and returns the unsubscribe function
func (p *GitHubProvider) OnAuthStateChange(listener Listener) func() {
	return p.broker.Subscribe(listener)
}

func (p *GitHubProvider) publish(eventType models.AuthEventType, token string, session *models.Session) {
	p.broker.Publish(models.AuthEvent{
		Type:    eventType,
		Token:   token,
		Session: session,
	})
}

func toSession(record *repositories.SessionRecord) *models.Session {
	return &models.Session{
		Token:     record.Token,
		User:      record.User.AuthUser(),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}

// GoGitHubProfiles loads profiles through the GitHub REST API
type GoGitHubProfiles struct {
	APIURL string
}

// FetchProfile reads the authenticated user and, when the profile hides it,
// the primary verified email
func (f *GoGitHubProfiles) FetchProfile(ctx context.Context, httpClient *http.Client) (*services.GitHubProfile, error) {
	client := github.NewClient(httpClient)
	if f.APIURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(f.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = baseURL
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	profile := &services.GitHubProfile{
		ID:        user.GetID(),
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		Email:     user.GetEmail(),
		AvatarURL: user.GetAvatarURL(),
	}

	if profile.Email == "" {
		emails, _, err := client.Users.ListEmails(ctx, &github.ListOptions{PerPage: 100})
		if err != nil {
			logger.WithError(err).Warn("Could not list GitHub emails")
			return profile, nil
		}
		for _, email := range emails {
			if email.GetPrimary() && email.GetVerified() {
				profile.Email = email.GetEmail()
				break
			}
		}
	}

	return profile, nil
}
