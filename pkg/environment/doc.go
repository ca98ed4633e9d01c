// Package environment defines the closed set of deployment environments a
// feature toggle is evaluated in: Development, Testing, Staging and
// Production.
//
// Values are parsed with Parse, which accepts the usual aliases ("dev",
// "stage", "prod", ...). Environment implements encoding.TextUnmarshaler so it
// can be used directly in env-tagged config structs and YAML documents.
//
// # Usage
//
//	env, err := environment.Parse(os.Getenv("TOGGLER_ENVIRONMENT"))
//	if err != nil {
//		return err
//	}
//
//	ctx = environment.WithContext(ctx, env)
//	if current, ok := environment.FromContext(ctx); ok {
//		// environment-aware behaviour
//	}
//
// LoggerExtractor plugs into logger.WithContextExtractors so that every log
// record written with a context carrying an environment gets an "env"
// attribute.
//
// Rank exposes the conventional promotion order
// (development → testing → staging → production). Nothing in this package
// enforces it; promotion policy belongs to the promotion workflow.
package environment
