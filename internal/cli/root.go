package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alimgiray/perfguide/internal/gitlab"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ErrMissingToken = errors.New("GitLab token required: pass --token or set GITLAB_TOKEN")

// app holds the settings shared by every subcommand
type app struct {
	v *viper.Viper
}

// NewRootCommand builds the gitlabctl command tree. Settings come from flags,
// GITLAB_* environment variables and an optional config file, in that order.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "gitlabctl",
		Short: "Manage GitLab repositories, issues and webhooks",
		Long: `gitlabctl drives the same GitLab client the web panel uses.

Examples:
  gitlabctl repos list --page 2
  gitlabctl repos create --name demo --visibility internal
  gitlabctl issues list 42 --state opened --labels bug
  gitlabctl hooks create 42 --url https://hooks.example.com --push --issues`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("token", "", "GitLab personal access token (env GITLAB_TOKEN)")
	flags.String("base-url", gitlab.DefaultBaseURL, "GitLab instance URL (env GITLAB_BASE_URL)")
	flags.Duration("timeout", 30*time.Second, "request timeout (env GITLAB_TIMEOUT)")
	flags.String("config", "", "optional config file (yaml, json or toml)")

	a.v.SetEnvPrefix("GITLAB")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	for _, name := range []string{"token", "base-url", "timeout", "config"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newReposCommand(a),
		newIssuesCommand(a),
		newHooksCommand(a),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) loadConfig() error {
	path := a.v.GetString("config")
	if path == "" {
		return nil
	}
	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// service returns the GitLab client and the token to call it with
func (a *app) service() (*gitlab.Service, string, error) {
	token := strings.TrimSpace(a.v.GetString("token"))
	if token == "" {
		return nil, "", ErrMissingToken
	}
	return gitlab.NewService(gitlab.Options{
		BaseURL: a.v.GetString("base-url"),
		Timeout: a.v.GetDuration("timeout"),
	}, nil), token, nil
}
