package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/toggler/internal/app"
	"github.com/dmitrymomot/toggler/pkg/httpserver"
)

// NewListenCommand creates the listen command.
func NewListenCommand(rootOpts *RootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Apply toggle changes published by other instances",
		Long: `Subscribe to the Redis changes channel and apply every change to a local
engine until interrupted. Requires PROPAGATION=redis.

With --metrics-addr (or OPS_ADDR) the process also serves /metrics and /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runListen(ctx, rootOpts, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address, e.g. :9090 (overrides OPS_ADDR)")

	return cmd
}

func runListen(ctx context.Context, rootOpts *RootOptions, metricsAddr string) error {
	return withApp(ctx, rootOpts, func(a *app.App) error {
		listener, err := a.Listener()
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return listener.Run(ctx) })

		opsCfg := a.Config.Ops
		if metricsAddr != "" {
			opsCfg.Addr = metricsAddr
		}
		if opsCfg.Enabled() {
			srv := httpserver.NewFromConfig(opsCfg, httpserver.WithLogger(a.Logger))
			g.Go(func() error { return srv.Run(ctx, opsHandler(a)) })
		}

		return g.Wait()
	})
}

func opsHandler(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /healthz", httpserver.HealthHandler(a.Logger, a.Healthcheck))
	return mux
}
