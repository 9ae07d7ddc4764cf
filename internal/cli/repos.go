package cli

import (
	"fmt"
	"strconv"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/spf13/cobra"
)

func newReposCommand(a *app) *cobra.Command {
	reposCmd := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repositories"},
		Short:   "Manage repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories you are a member of",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")

			svc, token, err := a.service()
			if err != nil {
				return err
			}
			repos, err := svc.FetchRepositories(cmd.Context(), token, models.PaginationParams{Page: page, PerPage: perPage})
			if err != nil {
				return err
			}
			return printRepositories(cmd.OutOrStdout(), repos)
		},
	}
	listCmd.Flags().Int("page", models.DefaultPage, "page number")
	listCmd.Flags().Int("per-page", models.DefaultPerPage, "repositories per page")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			description, _ := cmd.Flags().GetString("description")
			visibility, _ := cmd.Flags().GetString("visibility")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			parsed, err := models.ParseVisibility(visibility)
			if err != nil {
				return err
			}

			svc, token, err := a.service()
			if err != nil {
				return err
			}
			repo, err := svc.CreateRepository(cmd.Context(), token, name, description, parsed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully created repository %s\n\n", repo.Name)
			printRepository(cmd.OutOrStdout(), repo)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "repository name")
	createCmd.Flags().String("description", "", "repository description")
	createCmd.Flags().String("visibility", string(models.VisibilityPrivate), "private, internal or public")

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a repository's name, description or visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var update models.RepositoryUpdate
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				update.Name = &name
			}
			if cmd.Flags().Changed("description") {
				description, _ := cmd.Flags().GetString("description")
				update.Description = &description
			}
			if cmd.Flags().Changed("visibility") {
				value, _ := cmd.Flags().GetString("visibility")
				visibility, err := models.ParseVisibility(value)
				if err != nil {
					return err
				}
				update.Visibility = &visibility
			}
			if update.Name == nil && update.Description == nil && update.Visibility == nil {
				return fmt.Errorf("nothing to update: pass --name, --description or --visibility")
			}

			svc, token, err := a.service()
			if err != nil {
				return err
			}
			repo, err := svc.UpdateRepository(cmd.Context(), token, id, update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully updated repository %s\n\n", repo.Name)
			printRepository(cmd.OutOrStdout(), repo)
			return nil
		},
	}
	updateCmd.Flags().String("name", "", "new name")
	updateCmd.Flags().String("description", "", "new description")
	updateCmd.Flags().String("visibility", "", "private, internal or public")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, token, err := a.service()
			if err != nil {
				return err
			}
			if _, err := svc.DeleteRepository(cmd.Context(), token, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Repository %d scheduled for deletion\n", id)
			return nil
		},
	}

	reposCmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd)
	return reposCmd
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid repository id %q", value)
	}
	return id, nil
}
