package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/resolver"
	"github.com/vk/valuegraph/internal/value"
)

// ErrUnsatisfied is returned by Run in strict mode when any build left a
// requirement unsatisfied.
var ErrUnsatisfied = errors.New("unsatisfied requirements")

// Build is the result of building one calculation configuration of a view.
type Build struct {
	View   string
	Result *builder.Result
}

type job struct {
	view string
	cc   *config.CalcConfig
}

// Run builds the selected calculation configurations and writes them to w
// in the configured output format.
func (a *App) Run(ctx context.Context, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	builds, err := a.BuildAll(ctx)
	if err != nil {
		return err
	}
	if err := render(w, a.config.Output, builds); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := a.publish(ctx, builds); err != nil {
		return fmt.Errorf("failed to publish builds: %w", err)
	}

	if a.config.Strict {
		unsatisfied := 0
		for _, b := range builds {
			unsatisfied += len(b.Result.Report.Unsatisfied)
		}
		if unsatisfied > 0 {
			return fmt.Errorf("%w: %d across %d builds", ErrUnsatisfied, unsatisfied, len(builds))
		}
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// BuildAll builds every selected calculation configuration concurrently
// against the same engine snapshot. The first failure cancels the rest.
func (a *App) BuildAll(ctx context.Context) ([]Build, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	model := a.Model()

	jobs, err := selectJobs(model, a.config.View, a.config.CalcConfigs)
	if err != nil {
		return nil, err
	}
	overrides, err := resolver.ParsePropertyDefaults(a.config.DefaultProperties)
	if err != nil {
		return nil, fmt.Errorf("invalid default properties: %w", err)
	}
	a.logger.Info("🚀 Building graphs...", "builds", len(jobs), "version", a.engine.Version())

	builds := make([]Build, len(jobs))
	grp, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		grp.Go(func() error {
			req, err := newRequest(j.cc, overrides)
			if err != nil {
				return fmt.Errorf("view %s, calc config %s: %w", j.view, j.cc.Name, err)
			}
			res, err := a.engine.Build(gctx, req)
			if err != nil {
				return fmt.Errorf("view %s, calc config %s: %w", j.view, j.cc.Name, err)
			}
			if res.Status == builder.StatusCancelled {
				return fmt.Errorf("view %s, calc config %s: build cancelled: %w", j.view, j.cc.Name, context.Cause(gctx))
			}
			builds[i] = Build{View: j.view, Result: res}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	a.logger.Info("🏁 Graphs built.", "builds", len(builds))
	return builds, nil
}

// selectJobs picks the calculation configurations of the requested view, or
// of every view, optionally restricted to the given names.
func selectJobs(model *config.Model, view string, names []string) ([]job, error) {
	views := model.Views
	if view != "" {
		v, ok := model.View(view)
		if !ok {
			return nil, fmt.Errorf("unknown view %q", view)
		}
		views = []*config.View{v}
	}

	found := make(map[string]bool, len(names))
	for _, n := range names {
		found[n] = false
	}
	var jobs []job
	for _, v := range views {
		for _, cc := range v.CalcConfigs {
			if len(names) > 0 {
				if _, ok := found[cc.Name]; !ok {
					continue
				}
				found[cc.Name] = true
			}
			jobs = append(jobs, job{view: v.Name, cc: cc})
		}
	}

	var missing []string
	for n, ok := range found {
		if !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("unknown calc configs %q", missing)
	}
	if len(jobs) == 0 {
		return nil, errors.New("no calculation configurations to build")
	}
	return jobs, nil
}

// newRequest turns a calc config into a build request. overrides take
// precedence over the calc config's own defaults. Targets are left to the
// engine, which pairs its universe with the repository it builds against.
func newRequest(cc *config.CalcConfig, overrides *resolver.PropertyDefaults) (builder.Request, error) {
	defaults, err := resolver.ParsePropertyDefaults(cc.DefaultProperties)
	if err != nil {
		return builder.Request{}, fmt.Errorf("invalid default properties: %w", err)
	}

	var errs []error
	reqs := make([]value.ValueRequirement, 0, len(cc.Requirements))
	for _, def := range cc.Requirements {
		target, err := value.ParseTargetSpec(def.Target)
		if err != nil {
			errs = append(errs, fmt.Errorf("requirement %s: %w", def.ValueName, err))
			continue
		}
		constraints, err := value.ParseProperties(def.Constraints)
		if err != nil {
			errs = append(errs, fmt.Errorf("requirement %s on %s: %w", def.ValueName, target, err))
			continue
		}
		reqs = append(reqs, value.NewRequirement(def.ValueName, target, constraints))
	}
	if err := errors.Join(errs...); err != nil {
		return builder.Request{}, err
	}

	return builder.Request{
		CalculationConfiguration: cc.Name,
		Requirements:             reqs,
		Policy:                   resolver.Chain{overrides, defaults},
	}, nil
}
