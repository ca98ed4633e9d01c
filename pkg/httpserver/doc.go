// Package httpserver runs the operational HTTP endpoint of a toggler process
// (metrics and health) with graceful shutdown and structured logging.
//
// A Server is built with New or NewFromConfig and started with Run, which
// blocks until the context is cancelled and then shuts the listener down
// within the configured deadline:
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":9090"),
//		httpserver.WithLogger(log),
//	)
//	mux := http.NewServeMux()
//	mux.Handle("GET /healthz", httpserver.HealthHandler(log, app.Healthcheck))
//	if err := srv.Run(ctx, mux); err != nil {
//		log.Error("ops server stopped", logger.Error(err))
//	}
//
// Run wraps listen failures with ErrStart and Shutdown wraps shutdown failures
// with ErrShutdown.
package httpserver
