// Package logger builds *slog.Logger instances for the toggler services.
//
// A single factory, New, takes functional options to select the output format
// (json, text or pretty), the minimum level, static attributes and context
// extractors. The pretty format renders through github.com/lmittmann/tint and
// is what development and testing environments get by default.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "toggler"),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "kill switch activated",
//		logger.Feature("checkout-v2"),
//		logger.Environment("production"),
//		logger.UserID("ops-1"),
//	)
//
// Attribute helpers in attr.go keep key names consistent across packages.
// Error and UserID return an empty slog.Attr for zero input, so they can be
// passed unconditionally.
package logger
