package cli

import (
	"fmt"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/spf13/cobra"
)

func newHooksCommand(a *app) *cobra.Command {
	hooksCmd := &cobra.Command{
		Use:     "hooks",
		Aliases: []string{"webhooks"},
		Short:   "Manage repository webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <repository-id>",
		Short: "List webhooks of a repository",
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
			hooks, err := svc.FetchWebhooks(cmd.Context(), token, id)
			if err != nil {
				return err
			}
			return printWebhooks(cmd.OutOrStdout(), hooks)
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <repository-id>",
		Short: "Add a webhook to a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			var events models.WebhookEvents
			events.PushEvents, _ = cmd.Flags().GetBool("push")
			events.IssuesEvents, _ = cmd.Flags().GetBool("issues")
			events.MergeRequestsEvents, _ = cmd.Flags().GetBool("merge-requests")

			svc, token, err := a.service()
			if err != nil {
				return err
			}
			hook, err := svc.CreateWebhook(cmd.Context(), token, id, url, events)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully created webhook %d for %s (%s)\n", hook.ID, hook.URL, hookEvents(*hook))
			return nil
		},
	}
	createCmd.Flags().String("url", "", "endpoint GitLab will call")
	createCmd.Flags().Bool("push", true, "trigger on push events")
	createCmd.Flags().Bool("issues", false, "trigger on issue events")
	createCmd.Flags().Bool("merge-requests", false, "trigger on merge request events")

	hooksCmd.AddCommand(listCmd, createCmd)
	return hooksCmd
}
