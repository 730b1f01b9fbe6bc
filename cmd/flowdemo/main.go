// Command flowdemo runs a paced pipeline of rounded random windows:
//
//	source[low, high) -> rounded(place) -> windowed(N) -> paced(interval, jitter) -> log
//
// Each paced window is logged and exposed on the status server's /latest;
// /stream serves a fresh pipeline per client as Server-Sent Events.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/demandflow/bootstrap"
	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/executor"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/server"
	"github.com/kbukum/demandflow/sse"
	"github.com/kbukum/demandflow/version"
)

const serviceName = "flowdemo"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.GetVersionInfo().String()
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if err := setupTelemetry(ctx, app); err != nil {
		return err
	}

	metrics, err := observability.NewStreamMetrics(observability.Meter(serviceName))
	if err != nil {
		return err
	}

	exec := executor.NewSerial(serviceName, executor.WithLogger(logger.Get("executor")))
	runner := NewRunner(cfg.Pipeline, exec, metrics, logger.Get(runnerName))

	// Registration order is start order; the executor must run before the
	// pipeline schedules on it and stop after the pipeline is canceled.
	if err := app.RegisterComponent(exec); err != nil {
		return err
	}
	if err := app.RegisterComponent(runner); err != nil {
		return err
	}
	if cfg.Status.Enabled {
		srv := server.New(cfg.Status, app.Name, logger.Get("server"))
		srv.SetStatusSource(runner)
		srv.SetHealthChecker(app.Components.HealthAll)

		// Each /stream client pulls from its own pipeline at its own pace.
		hub := sse.NewHub(sse.WithPath("/stream"), sse.WithLogger(logger.Get("sse")))
		srv.Engine().GET("/stream", func(c *gin.Context) {
			stream, err := runner.Build()
			if err != nil {
				server.RespondWithError(c, err)
				return
			}
			sse.Serve(hub, c.Writer, c.Request, stream)
		})

		// Registered after the server so it stops first: open streams would
		// otherwise hold the server's graceful shutdown until it times out.
		if err := app.RegisterComponent(srv); err != nil {
			return err
		}
		if err := app.RegisterComponent(hub); err != nil {
			return err
		}
	}

	return app.Run(ctx)
}

// setupTelemetry installs OTLP trace and metric export when enabled and
// flushes it on shutdown.
func setupTelemetry(ctx context.Context, app *bootstrap.App[*Config]) error {
	o := app.Cfg.Observability
	if !o.Enabled {
		return nil
	}
	base := app.Cfg.GetServiceConfig()

	providers, err := observability.Init(ctx, observability.Config{
		ServiceName:    base.Name,
		ServiceVersion: base.Version,
		Environment:    base.Environment,
		Endpoint:       o.Endpoint,
		Insecure:       o.Insecure,
		SampleRate:     o.SampleRate,
		MetricInterval: o.MetricInterval,
	})
	if err != nil {
		return err
	}
	app.OnStop(providers.Shutdown)
	return nil
}
