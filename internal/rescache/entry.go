package rescache

import (
	"iter"
	"maps"
	"slices"

	"github.com/vk/valuegraph/internal/resolution"
)

// Footprint is the set of requirement keys visited while computing an outcome.
type Footprint map[string]struct{}

// NewFootprint creates a footprint holding keys.
func NewFootprint(keys ...string) Footprint {
	f := make(Footprint, len(keys))
	for _, k := range keys {
		f[k] = struct{}{}
	}
	return f
}

// Add merges other into f.
func (f Footprint) Add(other Footprint) {
	for k := range other {
		f[k] = struct{}{}
	}
}

// Has reports whether key is in f.
func (f Footprint) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Keys returns the keys in sorted order.
func (f Footprint) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// Disjoint reports whether none of keys is in f.
func (f Footprint) Disjoint(keys iter.Seq[string]) bool {
	for k := range keys {
		if f.Has(k) {
			return false
		}
	}
	return true
}

// Entry is an immutable cached outcome.
type Entry struct {
	Key       string
	Outcome   resolution.Outcome
	Footprint Footprint
}
