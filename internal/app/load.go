package app

import (
	"context"
	"fmt"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/targets"
)

// Load reads the configuration paths, rebuilds the function repository and
// the target universe, and hands both to the engine in one reload. A failed
// load leaves the previous state in place.
func (a *App) Load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration...", "paths", a.config.ConfigPaths)

	// Load all configuration into the format-agnostic model first.
	model, err := a.loader.Load(ctx, a.config.ConfigPaths...)
	if err != nil {
		return err
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	modules := append(coreModules(model.Catalogue), a.modules...)
	for _, mod := range modules {
		if err := mod.Register(reg); err != nil {
			return fmt.Errorf("failed to register module: %w", err)
		}
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.PopulateFromModel(ctx, model); err != nil {
		return fmt.Errorf("invalid function catalogue: %w", err)
	}
	if err := reg.Validate(ctx); err != nil {
		return err
	}
	logger.Debug("Registry validation passed.", "functions", reg.Len())

	repo, err := reg.Snapshot(model.Catalogue.Version)
	if err != nil {
		return err
	}
	universe, err := targets.FromModel(model.Targets)
	if err != nil {
		return fmt.Errorf("invalid target universe: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.engine.Reload(ctx, repo, universe); err != nil {
		return err
	}
	a.model = model

	logger.Info("Catalogue loaded.",
		"version", repo.Version().String(),
		"functions", repo.Len(),
		"targets", universe.Len(),
		"views", len(model.Views),
	)
	return nil
}
