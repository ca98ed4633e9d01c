package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/toggle"
)

type killSwitchOptions struct {
	env    string
	user   string
	reason string
}

// NewKillSwitchCommand creates the killswitch command group.
func NewKillSwitchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "killswitch",
		Short: "Activate or deactivate kill switches",
		Long: `Activate or deactivate a kill switch.

Kill switches live in process memory. From the command line they are useful
with PROPAGATION=redis, which relays the change to every running instance
listening on the changes channel.`,
	}

	cmd.AddCommand(newKillSwitchActionCommand(rootOpts, true))
	cmd.AddCommand(newKillSwitchActionCommand(rootOpts, false))

	return cmd
}

func newKillSwitchActionCommand(rootOpts *RootOptions, activate bool) *cobra.Command {
	opts := &killSwitchOptions{}

	use, short := "deactivate <feature>", "Deactivate a kill switch"
	if activate {
		use, short = "activate <feature>", "Force a feature off"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKillSwitch(rootOpts, opts, activate, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.env, "env", "e", "", "environment (defaults to TOGGLER_ENVIRONMENT)")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "principal performing the change")
	if activate {
		cmd.Flags().StringVarP(&opts.reason, "reason", "r", "", "why the feature is being killed")
	}
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runKillSwitch(rootOpts *RootOptions, opts *killSwitchOptions, activate bool, name string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	return withApp(ctx, rootOpts, func(a *app.App) error {
		env, err := resolveEnv(a, opts.env)
		if err != nil {
			return err
		}

		if activate {
			err = a.Engine.ActivateKillSwitch(ctx, name, env, opts.reason, opts.user)
		} else {
			err = a.Engine.DeactivateKillSwitch(ctx, name, env, opts.user)
		}
		if err != nil {
			return err
		}

		// A switch never activated in this process has no record.
		ks, ok := a.Engine.KillSwitch(name, env)
		if !ok {
			ks = toggle.KillSwitch{Feature: name, Environment: env, DeactivatedBy: opts.user}
		}
		return newPrinter(rootOpts, cmd).print(ks, func(w io.Writer) error {
			return writeKillSwitch(w, ks)
		})
	})
}

func writeKillSwitch(w io.Writer, ks toggle.KillSwitch) error {
	if ks.Active {
		_, err := fmt.Fprintf(w, "kill switch for %s in %s activated by %s\n", ks.Feature, ks.Environment, ks.ActivatedBy)
		return err
	}
	_, err := fmt.Fprintf(w, "kill switch for %s in %s deactivated by %s\n", ks.Feature, ks.Environment, ks.DeactivatedBy)
	return err
}
