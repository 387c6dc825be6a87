package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/valuegraph/internal/ctxlog"
	"github.com/vk/valuegraph/internal/value"
)

// Validate performs a consistency check over all registered functions.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []string
	producers := make(map[string]int)
	for _, e := range r.entries {
		fn := e.Function
		tt := fn.TargetType()
		if _, err := value.ParseTargetType(string(tt)); err != nil {
			errs = append(errs, fmt.Sprintf("function '%s': %v", fn.ID(), err))
		}
		if tt == value.TargetAny {
			logger.Debug("Function applies to every target type.", "function", fn.ID())
		}

		outputs := fn.Outputs()
		if len(outputs) == 0 {
			errs = append(errs, fmt.Sprintf("function '%s': declares no outputs", fn.ID()))
		}
		seen := make(map[string]struct{}, len(outputs))
		for _, name := range outputs {
			if name == "" {
				errs = append(errs, fmt.Sprintf("function '%s': empty output name", fn.ID()))
				continue
			}
			if _, dup := seen[name]; dup {
				errs = append(errs, fmt.Sprintf("function '%s': output '%s' declared twice", fn.ID(), name))
				continue
			}
			seen[name] = struct{}{}
			producers[name]++
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "functions", len(r.entries), "value_names", len(producers))
	return nil
}
