// Package main is the entry point for the Runbox orchestration server.
//
// Runbox accepts untrusted code submissions over a REST API, runs each one in
// an ephemeral Docker sandbox with hard resource limits, collects the runner's
// callback report, and pushes the normalized verdict to a backend service.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"context"
	"errors"
	"net/http"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/runbox/config"
	"github.com/isdmx/runbox/logger"
	"github.com/isdmx/runbox/notifier"
	"github.com/isdmx/runbox/sandbox"
	"github.com/isdmx/runbox/server"
	"github.com/isdmx/runbox/tracker"
)

// newOrchestrator maps application configuration onto the container
// orchestrator's own config and binds it to the interface the server
// consumes.
func newOrchestrator(log *zap.Logger, cfg *config.Config) (server.ContainerOrchestrator, error) {
	images := make(map[string]string, len(cfg.Languages))
	for lang, spec := range cfg.Languages {
		images[lang] = spec.Image
	}

	orc, err := sandbox.New(log, &sandbox.Config{
		Images:         images,
		RunnerPort:     cfg.Sandbox.RunnerPort,
		HealthPath:     cfg.Sandbox.HealthPath,
		BootWait:       cfg.BootWait(),
		HealthInterval: cfg.HealthInterval(),
		StopGrace:      cfg.StopGrace(),
		CallbackURL:    cfg.Sandbox.CallbackURL,
		Limits: sandbox.Limits{
			MemoryBytes:      cfg.MemoryBytes(),
			CPUQuotaFraction: cfg.Sandbox.CPUQuota,
			PidsLimit:        cfg.Sandbox.PidsLimit,
			ScratchBytes:     cfg.ScratchBytes(),
		},
	})
	if err != nil {
		return nil, err
	}
	return orc, nil
}

func newTracker(log *zap.Logger, cfg *config.Config) *tracker.Tracker {
	return tracker.New(log, cfg.JobTimeout())
}

func newNotifier(log *zap.Logger, cfg *config.Config) notifier.Notifier {
	return notifier.New(log, cfg.Notifier.URL, cfg.NotifyBudget())
}

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Docker-backed container orchestrator
			newOrchestrator,

			// In-flight job tracker with per-job timeouts
			newTracker,

			// Backend result notifier
			newNotifier,

			// HTTP server
			server.New,
		),

		// Run the server and tie teardown to the fx lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, log *zap.Logger, srv *server.Server, trk *tracker.Tracker) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						go func() {
							if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
								log.Error("server stopped", zap.Error(err))
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						trk.Stop()
						return srv.Shutdown(ctx)
					},
				})
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
