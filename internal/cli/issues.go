package cli

import (
	"fmt"
	"os"

	"github.com/alimgiray/perfguide/internal/gitlab"
	"github.com/alimgiray/perfguide/internal/models"
	"github.com/spf13/cobra"
)

func newIssuesCommand(a *app) *cobra.Command {
	issuesCmd := &cobra.Command{
		Use:   "issues",
		Short: "Browse repository issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <repository-id>",
		Short: "List issues of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := a.fetchIssues(cmd, args[0])
			if err != nil {
				return err
			}
			return printIssues(cmd.OutOrStdout(), issues)
		},
	}
	addIssueFlags(listCmd)

	exportCmd := &cobra.Command{
		Use:   "export <repository-id>",
		Short: "Export one page of issues to an XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			issues, err := a.fetchIssues(cmd, args[0])
			if err != nil {
				return err
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := gitlab.WriteIssuesXLSX(f, issues); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d issues to %s\n", len(issues), path)
			return nil
		},
	}
	addIssueFlags(exportCmd)
	exportCmd.Flags().String("file", "issues.xlsx", "output file")

	issuesCmd.AddCommand(listCmd, exportCmd)
	return issuesCmd
}

func addIssueFlags(cmd *cobra.Command) {
	defaults := models.DefaultIssueFilter()
	cmd.Flags().Int("page", models.DefaultPage, "page number")
	cmd.Flags().Int("per-page", models.DefaultPerPage, "issues per page")
	cmd.Flags().String("state", defaults.State, "opened, closed or all")
	cmd.Flags().String("labels", "", "comma separated labels")
	cmd.Flags().String("sort", defaults.Sort, "asc or desc")
	cmd.Flags().String("order-by", defaults.OrderBy, "created_at, updated_at or priority")
}

func (a *app) fetchIssues(cmd *cobra.Command, rawID string) ([]models.Issue, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")

	filter := &models.IssueFilter{}
	filter.State, _ = cmd.Flags().GetString("state")
	filter.Labels, _ = cmd.Flags().GetString("labels")
	filter.Sort, _ = cmd.Flags().GetString("sort")
	filter.OrderBy, _ = cmd.Flags().GetString("order-by")

	svc, token, err := a.service()
	if err != nil {
		return nil, err
	}
	return svc.FetchIssues(cmd.Context(), token, id, models.PaginationParams{Page: page, PerPage: perPage}, filter)
}
