// Package gitlab talks to the GitLab REST API on behalf of a signed-in user.
package gitlab

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alimgiray/perfguide/internal/metrics"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/sirupsen/logrus"
	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://gitlab.com"

type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outgoing requests per second. Zero means unlimited.
	RateLimit  float64
	HTTPClient *http.Client
}

// Service is stateless: every call carries the token it should use.
type Service struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	recorder   metrics.Recorder
}

func NewService(opts Options, recorder metrics.Recorder) *Service {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		httpClient = &copied
	}
	httpClient.Transport = &captureTransport{base: httpClient.Transport}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Service{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		recorder:   recorder,
	}
}

func (s *Service) client(token string) (*gl.Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	return gl.NewClient(token,
		gl.WithBaseURL(s.baseURL),
		gl.WithHTTPClient(s.httpClient),
		gl.WithoutRetries(),
		gl.WithCustomLimiter(s.limiter),
	)
}

// finish classifies err, then logs and records the call
func (s *Service) finish(operation string, fields logrus.Fields, start time.Time, resp *gl.Response, captured *errorBody, err error) error {
	err = classify(resp, captured.bytes(), err)
	duration := time.Since(start)
	status := statusOf(resp, err)
	s.recorder.RecordGitLabRequest(operation, status, duration)

	entry := logger.WithFields(fields).WithFields(logrus.Fields{
		"operation":   operation,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("GitLab request failed")
	} else {
		entry.Debug("GitLab request")
	}
	return err
}

func projectID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// FetchRepositories lists projects the token's user is a member of, most
// recently updated first
func (s *Service) FetchRepositories(ctx context.Context, token string, page models.PaginationParams) ([]models.Repository, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}
	page = page.Normalize()

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	projects, resp, err := client.Projects.ListProjects(&gl.ListProjectsOptions{
		ListOptions: gl.ListOptions{Page: page.Page, PerPage: page.PerPage},
		Membership:  gl.Ptr(true),
		OrderBy:     gl.Ptr("updated_at"),
	}, gl.WithContext(ctx))
	if err := s.finish("list_repositories", logrus.Fields{"page": page.Page}, start, resp, captured, err); err != nil {
		return nil, err
	}

	repos := make([]models.Repository, 0, len(projects))
	for _, p := range projects {
		repos = append(repos, toRepository(p))
	}
	return repos, nil
}

// CreateRepository creates a project. An empty visibility means private.
func (s *Service) CreateRepository(ctx context.Context, token, name, description string, visibility models.Visibility) (*models.Repository, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	opts := &gl.CreateProjectOptions{
		Name:       gl.Ptr(name),
		Visibility: gl.Ptr(gl.VisibilityValue(visibility)),
	}
	if description != "" {
		opts.Description = gl.Ptr(description)
	}

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	project, resp, err := client.Projects.CreateProject(opts, gl.WithContext(ctx))
	if err := s.finish("create_repository", logrus.Fields{"name": name}, start, resp, captured, err); err != nil {
		return nil, err
	}

	repo := toRepository(project)
	return &repo, nil
}

// UpdateRepository sends only the fields set in update
func (s *Service) UpdateRepository(ctx context.Context, token string, id int64, update models.RepositoryUpdate) (*models.Repository, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}

	opts := &gl.EditProjectOptions{
		Name:        update.Name,
		Description: update.Description,
	}
	if update.Visibility != nil {
		opts.Visibility = gl.Ptr(gl.VisibilityValue(*update.Visibility))
	}

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	project, resp, err := client.Projects.EditProject(projectID(id), opts, gl.WithContext(ctx))
	if err := s.finish("update_repository", logrus.Fields{"repository_id": id}, start, resp, captured, err); err != nil {
		return nil, err
	}

	repo := toRepository(project)
	return &repo, nil
}

func (s *Service) DeleteRepository(ctx context.Context, token string, id int64) (bool, error) {
	client, err := s.client(token)
	if err != nil {
		return false, err
	}

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	resp, err := client.Projects.DeleteProject(projectID(id), nil, gl.WithContext(ctx))
	if err := s.finish("delete_repository", logrus.Fields{"repository_id": id}, start, resp, captured, err); err != nil {
		return false, err
	}
	return true, nil
}

// FetchIssues lists a project's issues. A nil filter sends no filter parameters.
func (s *Service) FetchIssues(ctx context.Context, token string, repoID int64, page models.PaginationParams, filter *models.IssueFilter) ([]models.Issue, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}
	page = page.Normalize()

	opts := &gl.ListProjectIssuesOptions{
		ListOptions: gl.ListOptions{Page: page.Page, PerPage: page.PerPage},
	}
	if filter != nil {
		if filter.State != "" {
			opts.State = gl.Ptr(filter.State)
		}
		if labels := splitLabels(filter.Labels); len(labels) > 0 {
			opts.Labels = &labels
		}
		if filter.Sort != "" {
			opts.Sort = gl.Ptr(filter.Sort)
		}
		if filter.OrderBy != "" {
			opts.OrderBy = gl.Ptr(filter.OrderBy)
		}
	}

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	issues, resp, err := client.Issues.ListProjectIssues(projectID(repoID), opts, gl.WithContext(ctx))
	if err := s.finish("list_issues", logrus.Fields{"repository_id": repoID, "page": page.Page}, start, resp, captured, err); err != nil {
		return nil, err
	}

	result := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		result = append(result, toIssue(issue))
	}
	return result, nil
}

func splitLabels(value string) gl.LabelOptions {
	var labels gl.LabelOptions
	for _, label := range strings.Split(value, ",") {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

func (s *Service) FetchWebhooks(ctx context.Context, token string, repoID int64) ([]models.Webhook, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	hooks, resp, err := client.Projects.ListProjectHooks(projectID(repoID), nil, gl.WithContext(ctx))
	if err := s.finish("list_webhooks", logrus.Fields{"repository_id": repoID}, start, resp, captured, err); err != nil {
		return nil, err
	}

	result := make([]models.Webhook, 0, len(hooks))
	for _, hook := range hooks {
		result = append(result, toWebhook(hook))
	}
	return result, nil
}

func (s *Service) CreateWebhook(ctx context.Context, token string, repoID int64, url string, events models.WebhookEvents) (*models.Webhook, error) {
	client, err := s.client(token)
	if err != nil {
		return nil, err
	}

	ctx, captured := captureErrorBody(ctx)
	start := time.Now()
	hook, resp, err := client.Projects.AddProjectHook(projectID(repoID), &gl.AddProjectHookOptions{
		URL:                 gl.Ptr(url),
		PushEvents:          gl.Ptr(events.PushEvents),
		IssuesEvents:        gl.Ptr(events.IssuesEvents),
		MergeRequestsEvents: gl.Ptr(events.MergeRequestsEvents),
	}, gl.WithContext(ctx))
	if err := s.finish("create_webhook", logrus.Fields{"repository_id": repoID}, start, resp, captured, err); err != nil {
		return nil, err
	}

	webhook := toWebhook(hook)
	return &webhook, nil
}

func toRepository(p *gl.Project) models.Repository {
	return models.Repository{
		ID:             int64(p.ID),
		Name:           p.Name,
		Description:    p.Description,
		WebURL:         p.WebURL,
		Visibility:     models.Visibility(p.Visibility),
		CreatedAt:      p.CreatedAt,
		LastActivityAt: p.LastActivityAt,
	}
}

func toIssue(issue *gl.Issue) models.Issue {
	result := models.Issue{
		ID:          int64(issue.ID),
		IID:         int64(issue.IID),
		Title:       issue.Title,
		Description: issue.Description,
		State:       issue.State,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		WebURL:      issue.WebURL,
		Labels:      []string(issue.Labels),
	}
	if issue.Author != nil {
		result.Author = models.IssueAuthor{
			ID:        int64(issue.Author.ID),
			Name:      issue.Author.Name,
			AvatarURL: issue.Author.AvatarURL,
		}
	}
	return result
}

func toWebhook(hook *gl.ProjectHook) models.Webhook {
	return models.Webhook{
		ID:                  int64(hook.ID),
		URL:                 hook.URL,
		CreatedAt:           hook.CreatedAt,
		PushEvents:          hook.PushEvents,
		IssuesEvents:        hook.IssuesEvents,
		MergeRequestsEvents: hook.MergeRequestsEvents,
	}
}
