package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/config"
)

// AppFactory builds the application for a command run.
type AppFactory func(ctx context.Context) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	EnvFile string

	newApp AppFactory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the toggler command tree. Configuration comes from
// the environment, optionally seeded from --env-file.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func(ctx context.Context) (*app.App, error) {
		cfg, err := app.LoadConfig()
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg)
	})
}

func newRootCommand(factory AppFactory) *cobra.Command {
	opts := &RootOptions{newApp: factory}

	cmd := &cobra.Command{
		Use:   "toggler",
		Short: "Feature toggle evaluation and kill switch tool",
		Long: `toggler evaluates feature toggles against definitions loaded from
TOGGLER_FEATURES_FILE, flips kill switches and relays toggle changes between
instances over Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.EnvFile != "" {
				return config.LoadEnv(opts.EnvFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment variables from this file first")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewFlagsCommand(opts))
	cmd.AddCommand(NewKillSwitchCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewListenCommand(opts))

	return cmd
}

// withApp builds the app, runs fn and closes the app, flushing audit entries
// and pending propagations.
func withApp(ctx context.Context, opts *RootOptions, fn func(a *app.App) error) (err error) {
	a, err := opts.newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
