package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/environment"
	"github.com/dmitrymomot/toggler/pkg/feature"
	"github.com/dmitrymomot/toggler/pkg/toggle"
)

type checkOptions struct {
	env      string
	user     feature.User
	withUser bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check <feature>",
		Short: "Evaluate a feature",
		Long: `Evaluate a feature in an environment, optionally for a user.

Without --user the base state is evaluated. With --user the full user
precedence applies: allow and deny lists, specific users, groups and the
percentage rollout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.withUser = cmd.Flags().Changed("user") || cmd.Flags().Changed("segment") || cmd.Flags().Changed("group")
			return runCheck(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.env, "env", "e", "", "environment (defaults to TOGGLER_ENVIRONMENT)")
	cmd.Flags().StringVarP(&opts.user.ID, "user", "u", "", "user id")
	cmd.Flags().StringVar(&opts.user.Email, "email", "", "user email")
	cmd.Flags().StringVar(&opts.user.Segment, "segment", "", "user segment")
	cmd.Flags().StringSliceVar(&opts.user.Groups, "group", nil, "user group (repeatable)")
	cmd.Flags().BoolVar(&opts.user.Internal, "internal", false, "mark the user as internal")

	return cmd
}

func runCheck(rootOpts *RootOptions, opts *checkOptions, name string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	return withApp(ctx, rootOpts, func(a *app.App) error {
		env, err := resolveEnv(a, opts.env)
		if err != nil {
			return err
		}

		var d toggle.Decision
		if opts.withUser {
			d, err = a.Engine.EvaluateForUser(ctx, name, opts.user, env)
		} else {
			d, err = a.Engine.Evaluate(ctx, name, env)
		}
		if err != nil {
			return err
		}

		return newPrinter(rootOpts, cmd).print(d, func(w io.Writer) error {
			state := "disabled"
			if d.Enabled {
				state = "enabled"
			}
			if d.UserID != "" {
				_, err := fmt.Fprintf(w, "%s is %s in %s for %s (%s)\n", d.Feature, state, d.Environment, d.UserID, d.Reason)
				return err
			}
			_, err := fmt.Fprintf(w, "%s is %s in %s (%s)\n", d.Feature, state, d.Environment, d.Reason)
			return err
		})
	})
}

func resolveEnv(a *app.App, s string) (environment.Environment, error) {
	if s == "" {
		return a.Engine.Environment(), nil
	}
	return environment.Parse(s)
}
