package models

import (
	"errors"
	"fmt"
	"time"
)

type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// ErrInvalidVisibility is returned for anything other than private, internal or public
var ErrInvalidVisibility = errors.New("invalid visibility")

// ParseVisibility validates user input; callers decide what an empty value means
func ParseVisibility(value string) (Visibility, error) {
	switch v := Visibility(value); v {
	case VisibilityPrivate, VisibilityInternal, VisibilityPublic:
		return v, nil
	default:
		return "", fmt.Errorf("%w %q: must be private, internal or public", ErrInvalidVisibility, value)
	}
}

// Repository mirrors a GitLab project
type Repository struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	WebURL         string     `json:"web_url"`
	Visibility     Visibility `json:"visibility"`
	CreatedAt      *time.Time `json:"created_at"`
	LastActivityAt *time.Time `json:"last_activity_at"`
}

// RepositoryUpdate carries the fields to change; nil fields are left alone
type RepositoryUpdate struct {
	Name        *string
	Description *string
	Visibility  *Visibility
}

type IssueAuthor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Issue mirrors a GitLab project issue
type Issue struct {
	ID          int64       `json:"id"`
	IID         int64       `json:"iid"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	State       string      `json:"state"`
	CreatedAt   *time.Time  `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at"`
	WebURL      string      `json:"web_url"`
	Author      IssueAuthor `json:"author"`
	Labels      []string    `json:"labels"`
}

// Webhook mirrors a GitLab project hook
type Webhook struct {
	ID                  int64      `json:"id"`
	URL                 string     `json:"url"`
	CreatedAt           *time.Time `json:"created_at"`
	PushEvents          bool       `json:"push_events"`
	IssuesEvents        bool       `json:"issues_events"`
	MergeRequestsEvents bool       `json:"merge_requests_events"`
}

type WebhookEvents struct {
	PushEvents          bool
	IssuesEvents        bool
	MergeRequestsEvents bool
}

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

type PaginationParams struct {
	Page    int
	PerPage int
}

// Normalize fills in the first page and the default page size
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	return p
}

// IssueFilter narrows an issue listing. Empty fields are not sent.
type IssueFilter struct {
	State   string // opened, closed, all
	Labels  string // comma separated
	Sort    string // asc, desc
	OrderBy string // created_at, updated_at, priority
}

// DefaultIssueFilter matches the filter the issue view starts with
func DefaultIssueFilter() IssueFilter {
	return IssueFilter{State: "all", Sort: "desc", OrderBy: "created_at"}
}
