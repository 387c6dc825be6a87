package targets

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/uid"
	"github.com/vk/valuegraph/internal/value"
)

// ErrDuplicateTarget is returned when a target is added twice.
var ErrDuplicateTarget = errors.New("duplicate target")

// Universe is a thread-safe value.TargetResolver.
type Universe struct {
	id       uuid.UUID
	targets  sync.Map // Key: value.TargetSpec, Value: *value.ComputationTarget
	count    atomic.Int64
	revision atomic.Uint64
}

var _ value.VersionedTargetResolver = (*Universe)(nil)

// New creates an empty universe.
func New() *Universe {
	return &Universe{id: uuid.New()}
}

// FromModel builds a universe from target definitions. Children must refer to
// declared targets or to primitives.
func FromModel(defs []*config.TargetDefinition) (*Universe, error) {
	u := New()
	var errs []error
	for _, def := range defs {
		t, err := fromDefinition(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := u.Add(t); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, t := range u.Targets() {
		for _, c := range t.Children() {
			if _, ok := u.ResolveTarget(context.Background(), c); !ok {
				errs = append(errs, fmt.Errorf("target %s: unknown child %s", t, c))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return u, nil
}

func fromDefinition(def *config.TargetDefinition) (*value.ComputationTarget, error) {
	tt, err := value.ParseTargetType(def.Type)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", def.ID, err)
	}
	if tt == value.TargetAny {
		return nil, fmt.Errorf("target %q: type ANY is reserved for functions", def.ID)
	}
	id, err := uid.Parse(def.ID)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", def.ID, err)
	}
	children := make([]value.TargetSpec, 0, len(def.Children))
	for _, raw := range def.Children {
		c, err := value.ParseTargetSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("target %q: child: %w", def.ID, err)
		}
		children = append(children, c)
	}
	return value.NewTarget(value.NewTargetSpec(tt, id), def.Attributes, children...), nil
}

// Add stores t.
func (u *Universe) Add(t *value.ComputationTarget) error {
	if _, loaded := u.targets.LoadOrStore(t.Spec(), t); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.Spec())
	}
	u.count.Add(1)
	u.revision.Add(1)
	return nil
}

// ResolveTarget implements value.TargetResolver.
func (u *Universe) ResolveTarget(_ context.Context, spec value.TargetSpec) (*value.ComputationTarget, bool) {
	if t, ok := u.targets.Load(spec); ok {
		return t.(*value.ComputationTarget), true
	}
	if spec.Type == value.TargetPrimitive {
		return value.NewTarget(spec, nil), true
	}
	return nil, false
}

// TargetsVersion identifies the universe and its revision. Every Add moves it.
func (u *Universe) TargetsVersion() string {
	return fmt.Sprintf("%s.%d", u.id, u.revision.Load())
}

// Len returns the number of declared targets.
func (u *Universe) Len() int { return int(u.count.Load()) }

// Targets returns the declared targets sorted by reference.
func (u *Universe) Targets() []*value.ComputationTarget {
	var out []*value.ComputationTarget
	u.targets.Range(func(_, v any) bool {
		out = append(out, v.(*value.ComputationTarget))
		return true
	})
	slices.SortFunc(out, func(a, b *value.ComputationTarget) int {
		return cmp.Compare(a.Spec().String(), b.Spec().String())
	})
	return out
}
