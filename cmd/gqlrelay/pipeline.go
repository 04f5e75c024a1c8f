package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"gqlrelay/internal/config"
	"gqlrelay/internal/core"
	"gqlrelay/internal/core/engine"
	"gqlrelay/internal/pkg/logger"
	"gqlrelay/internal/telemetry"
)

// loadRuntime loads the configuration and the logger it describes. A non-empty
// logOutput overrides the configured sink.
func loadRuntime(logOutput string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if logOutput != "" {
		cfg.Log.Output = logOutput
	}

	log, err := logger.Build(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// buildPipeline wires the configured middlewares in front of an HTTP executor
func buildPipeline(cfg *config.Config, log *zap.Logger) (*core.Pipeline, error) {
	mws, err := engine.Build(cfg.Engine(), log)
	if err != nil {
		return nil, fmt.Errorf("invalid middleware config: %w", err)
	}

	executor := core.NewExecutor(
		core.WithClient(core.NewHTTPClient(cfg.Endpoint.Timeout)),
		core.WithDefaultURL(cfg.Endpoint.URL),
		core.WithBaseURL(cfg.Endpoint.BaseURL),
	)

	log.Debug("pipeline ready",
		zap.Int("middlewares", len(mws)),
		zap.String("default_url", executor.ResolveURL("")),
	)
	return core.NewPipeline(executor.Execute, mws...), nil
}

// initTracing installs the global tracer provider when tracing is enabled, with
// spans exported to w (nil means stdout). The returned func flushes it.
func initTracing(cfg *config.Config, w io.Writer, log *zap.Logger) (func(), error) {
	if !cfg.Tracing.Enabled {
		return func() {}, nil
	}

	shutdown, err := telemetry.InitTracer(cfg.Tracing.ServiceName, w, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}, nil
}
