// Package bootstrap runs an application's lifecycle: validated config,
// logger initialization, ordered component start, hooks, signal handling and
// graceful shutdown.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(cfg)
//	app.RegisterComponent(exec)
//	app.RegisterComponent(runner)
//	app.OnReady(func(ctx context.Context) error { ... })
//	if err := app.Run(ctx); err != nil {
//	    logger.Fatal(err.Error())
//	}
//
// Components start in registration order and stop in reverse, so register an
// executor before the pipelines that schedule on it.
package bootstrap
