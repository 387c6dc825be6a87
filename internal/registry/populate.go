package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/function"
)

// PopulateFromModel registers every function declared in the configuration
// model, in declaration order. All definition errors are reported together.
func (r *Registry) PopulateFromModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	var errs []error
	for _, def := range model.Functions {
		fn, err := function.NewDeclared(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Register(fn, Options{Priority: def.Priority}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to populate registry: %w", err)
	}

	logger.Debug("Registry populated from model.", "declared_functions", len(model.Functions), "total_functions", r.Len())
	return nil
}
