package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/feature"
)

// NewFlagsCommand creates the flags command.
func NewFlagsCommand(rootOpts *RootOptions) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "List feature definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, func(a *app.App) error {
				flags, err := a.Provider.ListFlags(ctx, tags...)
				if err != nil {
					return err
				}
				return newPrinter(rootOpts, cmd).print(flags, func(w io.Writer) error {
					return writeFlagTable(w, flags)
				})
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "only list flags carrying all of these tags")

	return cmd
}

func writeFlagTable(w io.Writer, flags []*feature.Flag) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENABLED\tROLLOUT\tTAGS")
	for _, f := range flags {
		rollout := "-"
		if f.Rollout != nil {
			rollout = fmt.Sprintf("%d%%", f.Rollout.EffectivePercentage())
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", f.Name, f.Enabled, rollout, strings.Join(f.Tags, ","))
	}
	return tw.Flush()
}
