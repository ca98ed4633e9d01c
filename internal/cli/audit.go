package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/audit"
	"github.com/dmitrymomot/toggler/pkg/environment"
)

type auditOptions struct {
	feature string
	env     string
	action  string
	user    string
	since   time.Duration
	limit   int
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit trail",
		Long: `Query audit entries from the configured destination.

Only postgres, mongo and opensearch destinations keep entries across runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.feature, "feature", "f", "", "filter by feature")
	cmd.Flags().StringVarP(&opts.env, "env", "e", "", "filter by environment")
	cmd.Flags().StringVarP(&opts.action, "action", "a", "", "filter by action, e.g. KillSwitchActivated")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "filter by principal")
	cmd.Flags().DurationVar(&opts.since, "since", 0, "only entries newer than this, e.g. 24h")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 100, "maximum number of entries")

	return cmd
}

func runAudit(rootOpts *RootOptions, opts *auditOptions, cmd *cobra.Command) error {
	criteria := audit.Criteria{
		Feature: opts.feature,
		Action:  audit.Action(opts.action),
		UserID:  opts.user,
		Limit:   opts.limit,
	}
	if opts.env != "" {
		env, err := environment.Parse(opts.env)
		if err != nil {
			return err
		}
		criteria.Environment = env
	}
	if opts.since > 0 {
		criteria.Since = time.Now().Add(-opts.since)
	}

	ctx := cmd.Context()
	return withApp(ctx, rootOpts, func(a *app.App) error {
		entries, err := a.FindAudit(ctx, criteria)
		if err != nil {
			return err
		}
		return newPrinter(rootOpts, cmd).print(entries, func(w io.Writer) error {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tFEATURE\tENV\tACTION\tUSER\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format(time.RFC3339), e.Feature, e.Environment, e.Action, e.UserID, e.Details)
			}
			return tw.Flush()
		})
	})
}
