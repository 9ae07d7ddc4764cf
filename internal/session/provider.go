package session

import (
	"context"
	"sync"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/pkg/logger"
)

// Source is the auth backend a Provider reads from
type Source interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	OnAuthStateChange(listener func(models.AuthEvent)) func()
}

// State is a snapshot of the provider
type State struct {
	User            *models.AuthUser
	Session         *models.Session
	IsLoading       bool
	IsAuthenticated bool
}

// Provider tracks the session behind one token. It fetches once on Start and
// then follows auth events for the same token until Stop.
type Provider struct {
	source Source
	token  string

	mu          sync.RWMutex
	session     *models.Session
	loading     bool
	eventSeen   bool
	unsubscribe func()

	settled    chan struct{}
	settleOnce sync.Once
	stopOnce   sync.Once
}

func NewProvider(source Source, token string) *Provider {
	return &Provider{
		source:  source,
		token:   token,
		loading: true,
		settled: make(chan struct{}),
	}
}

// Start subscribes to auth events and fetches the current session in the background
func (p *Provider) Start(ctx context.Context) {
	unsubscribe := p.source.OnAuthStateChange(p.handleEvent)
	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()

	go p.fetch(ctx)
}

func (p *Provider) fetch(ctx context.Context) {
	session, err := p.source.GetSession(ctx, p.token)
	if err != nil {
		logger.WithError(err).Warn("Failed to resolve session")
		session = nil
	}

	p.mu.Lock()
	// an event that arrived meanwhile is newer than this read
	if !p.eventSeen {
		p.session = session
	}
	p.loading = false
	p.mu.Unlock()

	p.settle()
}

func (p *Provider) handleEvent(event models.AuthEvent) {
	if p.token == "" || event.Token != p.token {
		return
	}

	p.mu.Lock()
	switch event.Type {
	case models.AuthEventSignedIn, models.AuthEventTokenRefreshed:
		p.session = event.Session
	case models.AuthEventSignedOut:
		p.session = nil
	default:
		p.mu.Unlock()
		return
	}
	p.eventSeen = true
	p.loading = false
	p.mu.Unlock()

	p.settle()
}

func (p *Provider) settle() {
	p.settleOnce.Do(func() { close(p.settled) })
}

// Wait blocks until the initial state is known or ctx is done. It reports
// whether the state settled.
func (p *Provider) Wait(ctx context.Context) bool {
	select {
	case <-p.settled:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state := State{
		Session:   p.session,
		IsLoading: p.loading,
	}
	if p.session != nil {
		user := p.session.User
		state.User = &user
	}
	state.IsAuthenticated = state.User != nil
	return state
}

// Stop unsubscribes from auth events. Calling it more than once is safe.
func (p *Provider) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		unsubscribe := p.unsubscribe
		p.unsubscribe = nil
		p.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	})
}
