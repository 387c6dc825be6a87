package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/engine"
	"github.com/vk/valuegraph/internal/metrics"
	"github.com/vk/valuegraph/internal/publish"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/rescache"
	"github.com/vk/valuegraph/internal/scheduler"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loader  config.Loader
	modules []registry.Module
	metrics *metrics.Metrics
	engine  *engine.Engine

	mu    sync.RWMutex
	model *config.Model

	httpServer *http.Server
	publisher  publish.Publisher
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with the catalogue already loaded, including its own
// isolated logger and metrics registry. modules are registered in addition
// to the core modules.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	m := metrics.New()
	a := &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loader:  loader,
		modules: modules,
		metrics: m,
		engine: engine.New(rescache.New(0), m,
			builder.WithPool(scheduler.New(cfg.WorkerCount)),
		),
	}
	if err := a.Load(ctxlog.WithLogger(context.Background(), logger)); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return a, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Metrics returns the application's metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Model returns the configuration model of the last successful load.
func (a *App) Model() *config.Model {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}
