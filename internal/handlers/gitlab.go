package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alimgiray/perfguide/internal/gitlab"
	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/alimgiray/perfguide/internal/services"
	"github.com/alimgiray/perfguide/pkg/logger"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GitLabTokens stores the GitLab token of each user
type GitLabTokens interface {
	GetUserByID(id string) (*models.User, error)
	ConnectGitLab(userID, token string) error
	DisconnectGitLab(userID string) error
}

type GitLabHandler struct {
	api     gitlab.API
	users   GitLabTokens
	perPage int
}

func NewGitLabHandler(api gitlab.API, users GitLabTokens, perPage int) *GitLabHandler {
	return &GitLabHandler{
		api:     api,
		users:   users,
		perPage: perPage,
	}
}

// panel builds the per-request panel. It writes the response itself and
// returns nil when the user has no token or cannot be loaded.
func (h *GitLabHandler) panel(c *gin.Context) *gitlab.Panel {
	authUser := middleware.CurrentUser(c)
	if authUser == nil {
		c.Redirect(http.StatusFound, "/auth")
		c.Abort()
		return nil
	}

	user, err := h.users.GetUserByID(authUser.ID)
	if err != nil {
		logger.WithError(err).WithField("user_id", authUser.ID).Error("Failed to load user")
		renderError(c, http.StatusInternalServerError, "Could not load your account.")
		return nil
	}

	if !user.HasGitLabToken() {
		c.Redirect(http.StatusFound, "/gitlab")
		c.Abort()
		return nil
	}

	return gitlab.NewPanel(h.api, user.GitLabToken, h.perPage)
}

func (h *GitLabHandler) renderRepositories(c *gin.Context, panel *gitlab.Panel) {
	c.HTML(http.StatusOK, "gitlab_repositories", gin.H{
		"Title": "GitLab",
		"User":  middleware.CurrentUser(c),
		"Panel": panel.State(),
	})
}

func (h *GitLabHandler) renderConnect(c *gin.Context, status int, notices []gitlab.Notice) {
	c.HTML(status, "gitlab_connect", gin.H{
		"Title":   "Connect GitLab",
		"User":    middleware.CurrentUser(c),
		"Notices": notices,
	})
}

func pageParam(value string) int {
	page, err := strconv.Atoi(value)
	if err != nil || page < 1 {
		return models.DefaultPage
	}
	return page
}

func repositoryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		NewNotFoundHandler().NotFound(c)
		c.Abort()
		return 0, false
	}
	return id, true
}

// Index shows the connect form or the repository list
func (h *GitLabHandler) Index(c *gin.Context) {
	authUser := middleware.CurrentUser(c)
	if authUser == nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}

	user, err := h.users.GetUserByID(authUser.ID)
	if err != nil {
		logger.WithError(err).WithField("user_id", authUser.ID).Error("Failed to load user")
		renderError(c, http.StatusInternalServerError, "Could not load your account.")
		return
	}
	if !user.HasGitLabToken() {
		h.renderConnect(c, http.StatusOK, nil)
		return
	}

	panel := gitlab.NewPanel(h.api, user.GitLabToken, h.perPage)
	panel.FetchRepositories(c.Request.Context(), pageParam(c.Query("page")))
	h.renderRepositories(c, panel)
}

// Connect stores the submitted token
func (h *GitLabHandler) Connect(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}

	err := h.users.ConnectGitLab(user.ID, c.PostForm("token"))
	if errors.Is(err, services.ErrEmptyGitLabToken) {
		h.renderConnect(c, http.StatusBadRequest, []gitlab.Notice{{
			Kind:        gitlab.NoticeError,
			Title:       "Error",
			Description: "Please enter a GitLab API token.",
		}})
		return
	}
	if err != nil {
		logger.WithError(err).WithField("user_id", user.ID).Error("Failed to store GitLab token")
		renderError(c, http.StatusInternalServerError, "Could not save your GitLab token.")
		return
	}

	c.Redirect(http.StatusFound, "/gitlab")
}

// Disconnect forgets the stored token
func (h *GitLabHandler) Disconnect(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth")
		return
	}

	if err := h.users.DisconnectGitLab(user.ID); err != nil {
		logger.WithError(err).WithField("user_id", user.ID).Error("Failed to remove GitLab token")
		renderError(c, http.StatusInternalServerError, "Could not disconnect GitLab.")
		return
	}

	c.Redirect(http.StatusFound, "/gitlab")
}

// CreateRepository creates a project and re-lists the first page
func (h *GitLabHandler) CreateRepository(c *gin.Context) {
	panel := h.panel(c)
	if panel == nil {
		return
	}
	ctx := c.Request.Context()

	name := strings.TrimSpace(c.PostForm("name"))
	value := c.PostForm("visibility")
	if value == "" {
		value = string(models.VisibilityPrivate)
	}
	visibility, err := models.ParseVisibility(value)
	switch {
	case name == "":
		panel.AddNotice(gitlab.Notice{Kind: gitlab.NoticeError, Title: "Error", Description: "Repository name is required."})
	case err != nil:
		panel.AddNotice(invalidVisibilityNotice(value))
	default:
		panel.CreateRepository(ctx, name, strings.TrimSpace(c.PostForm("description")), visibility)
	}

	panel.FetchRepositories(ctx, models.DefaultPage)
	h.renderRepositories(c, panel)
}

// UpdateRepository edits the fields present in the form
func (h *GitLabHandler) UpdateRepository(c *gin.Context) {
	id, ok := repositoryID(c)
	if !ok {
		return
	}
	panel := h.panel(c)
	if panel == nil {
		return
	}
	ctx := c.Request.Context()

	var update models.RepositoryUpdate
	if name, ok := c.GetPostForm("name"); ok && strings.TrimSpace(name) != "" {
		name = strings.TrimSpace(name)
		update.Name = &name
	}
	if description, ok := c.GetPostForm("description"); ok {
		update.Description = &description
	}
	valid := true
	if value, ok := c.GetPostForm("visibility"); ok && value != "" {
		visibility, err := models.ParseVisibility(value)
		if err != nil {
			valid = false
			panel.AddNotice(invalidVisibilityNotice(value))
		}
		update.Visibility = &visibility
	}

	if valid {
		panel.UpdateRepository(ctx, id, update)
	}
	panel.FetchRepositories(ctx, pageParam(c.PostForm("page")))
	h.renderRepositories(c, panel)
}

func invalidVisibilityNotice(value string) gitlab.Notice {
	return gitlab.Notice{
		Kind:        gitlab.NoticeError,
		Title:       "Error",
		Description: fmt.Sprintf("Invalid visibility %q: choose private, internal or public.", value),
	}
}

// DeleteRepository removes a project and re-lists the current page
func (h *GitLabHandler) DeleteRepository(c *gin.Context) {
	id, ok := repositoryID(c)
	if !ok {
		return
	}
	panel := h.panel(c)
	if panel == nil {
		return
	}
	ctx := c.Request.Context()

	panel.DeleteRepository(ctx, id)
	panel.FetchRepositories(ctx, pageParam(c.PostForm("page")))
	h.renderRepositories(c, panel)
}

// issueFilter reads the filter from the query, falling back to the defaults
func issueFilter(c *gin.Context) models.IssueFilter {
	filter := models.DefaultIssueFilter()
	switch state := c.Query("state"); state {
	case "opened", "closed", "all":
		filter.State = state
	}
	filter.Labels = strings.TrimSpace(c.Query("labels"))
	switch sort := c.Query("sort"); sort {
	case "asc", "desc":
		filter.Sort = sort
	}
	switch orderBy := c.Query("order_by"); orderBy {
	case "created_at", "updated_at", "priority":
		filter.OrderBy = orderBy
	}
	return filter
}

func issueQuery(filter models.IssueFilter, page int) template.URL {
	values := url.Values{}
	values.Set("state", filter.State)
	if filter.Labels != "" {
		values.Set("labels", filter.Labels)
	}
	values.Set("sort", filter.Sort)
	values.Set("order_by", filter.OrderBy)
	values.Set("page", strconv.Itoa(page))
	return template.URL(values.Encode())
}

// Issues lists a repository's issues
func (h *GitLabHandler) Issues(c *gin.Context) {
	id, ok := repositoryID(c)
	if !ok {
		return
	}
	panel := h.panel(c)
	if panel == nil {
		return
	}

	filter := issueFilter(c)
	page := pageParam(c.Query("page"))
	panel.FetchIssues(c.Request.Context(), id, page, &filter)
	state := panel.State()

	c.HTML(http.StatusOK, "gitlab_issues", gin.H{
		"Title":        "Issues",
		"User":         middleware.CurrentUser(c),
		"Panel":        state,
		"RepositoryID": id,
		"Filter":       filter,
		"Query":        issueQuery(filter, state.IssuePage),
		"PrevQuery":    issueQuery(filter, state.IssuePage-1),
		"NextQuery":    issueQuery(filter, state.IssuePage+1),
	})
}

// ExportIssues sends the current issue page as a spreadsheet
func (h *GitLabHandler) ExportIssues(c *gin.Context) {
	id, ok := repositoryID(c)
	if !ok {
		return
	}
	panel := h.panel(c)
	if panel == nil {
		return
	}

	filter := issueFilter(c)
	issues, err := panel.FetchIssues(c.Request.Context(), id, pageParam(c.Query("page")), &filter)
	if err != nil {
		renderError(c, http.StatusBadGateway, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := gitlab.WriteIssuesXLSX(&buf, issues); err != nil {
		logger.WithError(err).WithField("repository_id", id).Error("Failed to export issues")
		renderError(c, http.StatusInternalServerError, "Could not build the spreadsheet.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="issues-%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *GitLabHandler) renderWebhooks(c *gin.Context, id int64, panel *gitlab.Panel) {
	c.HTML(http.StatusOK, "gitlab_webhooks", gin.H{
		"Title":        "Webhooks",
		"User":         middleware.CurrentUser(c),
		"Panel":        panel.State(),
		"RepositoryID": id,
	})
}

// Webhooks lists a repository's hooks
func (h *GitLabHandler) Webhooks(c *gin.Context) {
	id, ok := repositoryID(c)
	if !ok {
		return
	}
	panel := h.panel(c)
	if panel == nil {
		return
	}

	panel.FetchWebhooks(c.Request.Context(), id)
	h.renderWebhooks(c, id, panel)
}

// CreateWebhook adds a hook and re-lists the repository's hooks
func (h *GitLabHandler) CreateWebhook(c *gin.Context) {
	id, ok := repositoryID(c)
	if !ok {
		return
	}
	panel := h.panel(c)
	if panel == nil {
		return
	}
	ctx := c.Request.Context()

	hookURL := strings.TrimSpace(c.PostForm("url"))
	if parsed, err := url.Parse(hookURL); err != nil || hookURL == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		panel.AddNotice(gitlab.Notice{Kind: gitlab.NoticeError, Title: "Error", Description: "Webhook URL must be an http or https URL."})
	} else {
		panel.CreateWebhook(ctx, id, hookURL, models.WebhookEvents{
			PushEvents:          c.PostForm("push_events") == "true",
			IssuesEvents:        c.PostForm("issues_events") == "true",
			MergeRequestsEvents: c.PostForm("merge_requests_events") == "true",
		})
	}

	panel.FetchWebhooks(ctx, id)
	h.renderWebhooks(c, id, panel)
}
