package gitlab

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alimgiray/perfguide/internal/models"
)

// API is the set of GitLab operations a Panel drives. *Service implements it.
type API interface {
	FetchRepositories(ctx context.Context, token string, page models.PaginationParams) ([]models.Repository, error)
	CreateRepository(ctx context.Context, token, name, description string, visibility models.Visibility) (*models.Repository, error)
	UpdateRepository(ctx context.Context, token string, id int64, update models.RepositoryUpdate) (*models.Repository, error)
	DeleteRepository(ctx context.Context, token string, id int64) (bool, error)
	FetchIssues(ctx context.Context, token string, repoID int64, page models.PaginationParams, filter *models.IssueFilter) ([]models.Issue, error)
	FetchWebhooks(ctx context.Context, token string, repoID int64) ([]models.Webhook, error)
	CreateWebhook(ctx context.Context, token string, repoID int64, url string, events models.WebhookEvents) (*models.Webhook, error)
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a short message for the user about the outcome of an operation
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
}

// PanelState is a copy of everything a Panel currently holds
type PanelState struct {
	Repositories    []models.Repository
	Issues          []models.Issue
	Webhooks        []models.Webhook
	IsLoading       bool
	Err             error
	CurrentPage     int
	TotalPages      int
	IssuePage       int
	IssueTotalPages int
	Notices         []Notice
}

// Panel holds the GitLab data shown for one user and token. Every operation
// sets the shared loading and error flags on its own, so when calls overlap
// the last one to finish decides them.
type Panel struct {
	api     API
	token   string
	perPage int

	mu    sync.Mutex
	state PanelState
}

func NewPanel(api API, token string, perPage int) *Panel {
	if perPage < 1 {
		perPage = models.DefaultPerPage
	}
	return &Panel{
		api:     api,
		token:   token,
		perPage: perPage,
		state: PanelState{
			CurrentPage:     models.DefaultPage,
			TotalPages:      1,
			IssuePage:       models.DefaultPage,
			IssueTotalPages: 1,
		},
	}
}

// estimateTotalPages guesses the page count from a single page of results:
// a short page is the last one, a full page implies at least one more.
func estimateTotalPages(count, page, perPage int) int {
	if count < perPage {
		return page
	}
	return page + 1
}

func (p *Panel) begin() {
	p.mu.Lock()
	p.state.IsLoading = true
	p.state.Err = nil
	p.mu.Unlock()
}

func (p *Panel) end(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.IsLoading = false
	p.state.Err = err
	if err != nil {
		p.state.Notices = append(p.state.Notices, errorNotice(err))
	}
}

func (p *Panel) notify(title, description string) {
	p.mu.Lock()
	p.state.Notices = append(p.state.Notices, Notice{Kind: NoticeSuccess, Title: title, Description: description})
	p.mu.Unlock()
}

// AddNotice queues a message that did not come from an API call, such as
// form validation
func (p *Panel) AddNotice(notice Notice) {
	p.mu.Lock()
	p.state.Notices = append(p.state.Notices, notice)
	p.mu.Unlock()
}

func errorNotice(err error) Notice {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		title, description := apiErr.Notice()
		return Notice{Kind: NoticeError, Title: title, Description: description}
	}
	return Notice{Kind: NoticeError, Title: "Error", Description: err.Error()}
}

func (p *Panel) pagination(page int) models.PaginationParams {
	return models.PaginationParams{Page: page, PerPage: p.perPage}.Normalize()
}

func (p *Panel) FetchRepositories(ctx context.Context, page int) ([]models.Repository, error) {
	params := p.pagination(page)
	p.begin()

	repos, err := p.api.FetchRepositories(ctx, p.token, params)
	if err == nil {
		p.mu.Lock()
		p.state.Repositories = repos
		p.state.CurrentPage = params.Page
		p.state.TotalPages = estimateTotalPages(len(repos), params.Page, params.PerPage)
		p.mu.Unlock()
	}

	p.end(err)
	return repos, err
}

func (p *Panel) CreateRepository(ctx context.Context, name, description string, visibility models.Visibility) (*models.Repository, error) {
	p.begin()
	repo, err := p.api.CreateRepository(ctx, p.token, name, description, visibility)
	if err == nil {
		p.notify("Repository Created", fmt.Sprintf("Successfully created repository %s", name))
	}
	p.end(err)
	return repo, err
}

func (p *Panel) UpdateRepository(ctx context.Context, id int64, update models.RepositoryUpdate) (*models.Repository, error) {
	p.begin()
	repo, err := p.api.UpdateRepository(ctx, p.token, id, update)
	if err == nil {
		p.notify("Repository Updated", "Successfully updated repository details")
	}
	p.end(err)
	return repo, err
}

func (p *Panel) DeleteRepository(ctx context.Context, id int64) (bool, error) {
	p.begin()
	ok, err := p.api.DeleteRepository(ctx, p.token, id)
	if err == nil && ok {
		p.notify("Repository Deleted", "Successfully deleted repository")
	}
	p.end(err)
	return ok, err
}

func (p *Panel) FetchIssues(ctx context.Context, repoID int64, page int, filter *models.IssueFilter) ([]models.Issue, error) {
	params := p.pagination(page)
	p.begin()

	issues, err := p.api.FetchIssues(ctx, p.token, repoID, params, filter)
	if err == nil {
		p.mu.Lock()
		p.state.Issues = issues
		p.state.IssuePage = params.Page
		p.state.IssueTotalPages = estimateTotalPages(len(issues), params.Page, params.PerPage)
		p.mu.Unlock()
	}

	p.end(err)
	return issues, err
}

func (p *Panel) FetchWebhooks(ctx context.Context, repoID int64) ([]models.Webhook, error) {
	p.begin()
	hooks, err := p.api.FetchWebhooks(ctx, p.token, repoID)
	if err == nil {
		p.mu.Lock()
		p.state.Webhooks = hooks
		p.mu.Unlock()
	}
	p.end(err)
	return hooks, err
}

func (p *Panel) CreateWebhook(ctx context.Context, repoID int64, url string, events models.WebhookEvents) (*models.Webhook, error) {
	p.begin()
	hook, err := p.api.CreateWebhook(ctx, p.token, repoID, url, events)
	if err == nil {
		p.notify("Webhook Created", fmt.Sprintf("Successfully created webhook for %s", url))
	}
	p.end(err)
	return hook, err
}

// State returns a snapshot of the panel
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.state
	state.Repositories = append([]models.Repository(nil), p.state.Repositories...)
	state.Issues = append([]models.Issue(nil), p.state.Issues...)
	state.Webhooks = append([]models.Webhook(nil), p.state.Webhooks...)
	state.Notices = append([]Notice(nil), p.state.Notices...)
	return state
}
