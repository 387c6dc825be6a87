package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/vk/valuegraph/internal/function"
)

// ErrDuplicateFunction is returned when two functions share an id.
var ErrDuplicateFunction = errors.New("duplicate function id")

// Module is the interface that all Go-coded function modules must implement
// to be registered. Modules are configured from user input, so a failed
// registration is returned rather than panicking.
type Module interface {
	Register(r *Registry) error
}

// Options are the registration attributes of a function.
type Options struct {
	// Priority orders candidates for the same value; higher comes first.
	Priority int
}

// Registry collects functions in declaration order.
type Registry struct {
	mu         sync.Mutex
	entries    []*Entry
	byID       map[string]*Entry
	generation uint64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*Entry)}
}

// Register adds a function. Declaration order is the order of Register calls.
func (r *Registry) Register(fn function.Function, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[fn.ID()]; exists {
		return fmt.Errorf("%w: '%s'", ErrDuplicateFunction, fn.ID())
	}
	entry := &Entry{Function: fn, Priority: opts.Priority, Order: len(r.entries)}
	r.entries = append(r.entries, entry)
	r.byID[fn.ID()] = entry
	slog.Debug("Registering function.", "id", fn.ID(), "target_type", fn.TargetType(), "priority", opts.Priority)
	return nil
}

// MustRegister is Register for tests and fixed function sets, where a
// duplicate id is a programming error.
func (r *Registry) MustRegister(fn function.Function, opts Options) {
	if err := r.Register(fn, opts); err != nil {
		panic(err)
	}
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot freezes the current contents into an immutable Repository. label
// is an optional semantic version of the catalogue.
func (r *Registry) Snapshot(label string) (*Repository, error) {
	var v *semver.Version
	if label != "" {
		parsed, err := semver.NewVersion(label)
		if err != nil {
			return nil, fmt.Errorf("invalid catalogue version %q: %w", label, err)
		}
		v = parsed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++

	entries := make([]*Entry, len(r.entries))
	for i, e := range r.entries {
		cp := *e
		entries[i] = &cp
	}
	return newRepository(Version{Generation: r.generation, Label: v}, entries), nil
}
