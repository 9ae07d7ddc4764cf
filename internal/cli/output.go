package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func printRepositories(w io.Writer, repos []models.Repository) error {
	if len(repos) == 0 {
		fmt.Fprintln(w, "No repositories found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tVISIBILITY\tLAST ACTIVITY\tURL")
	for _, repo := range repos {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", repo.ID, repo.Name, repo.Visibility, formatTime(repo.LastActivityAt), repo.WebURL)
	}
	return tw.Flush()
}

func printRepository(w io.Writer, repo *models.Repository) {
	fmt.Fprintf(w, "ID:          %d\n", repo.ID)
	fmt.Fprintf(w, "Name:        %s\n", repo.Name)
	if repo.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", repo.Description)
	}
	fmt.Fprintf(w, "Visibility:  %s\n", repo.Visibility)
	fmt.Fprintf(w, "URL:         %s\n", repo.WebURL)
}

func printIssues(w io.Writer, issues []models.Issue) error {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "IID\tSTATE\tTITLE\tAUTHOR\tLABELS\tCREATED")
	for _, issue := range issues {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\t%s\t%s\n",
			issue.IID, issue.State, issue.Title, issue.Author.Name, strings.Join(issue.Labels, ","), formatTime(issue.CreatedAt))
	}
	return tw.Flush()
}

func printWebhooks(w io.Writer, hooks []models.Webhook) error {
	if len(hooks) == 0 {
		fmt.Fprintln(w, "No webhooks found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tURL\tEVENTS\tCREATED")
	for _, hook := range hooks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", hook.ID, hook.URL, hookEvents(hook), formatTime(hook.CreatedAt))
	}
	return tw.Flush()
}

func hookEvents(hook models.Webhook) string {
	var events []string
	if hook.PushEvents {
		events = append(events, "push")
	}
	if hook.IssuesEvents {
		events = append(events, "issues")
	}
	if hook.MergeRequestsEvents {
		events = append(events, "merge_requests")
	}
	if len(events) == 0 {
		return "-"
	}
	return strings.Join(events, ",")
}
