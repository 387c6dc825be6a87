package registry

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/vk/valuegraph/internal/function"
)

// Entry is a function together with its ordering attributes.
type Entry struct {
	Function function.Function
	Priority int
	// Order is the declaration index; it breaks priority ties.
	Order int
}

// Version identifies a repository snapshot.
type Version struct {
	// Generation increases with every snapshot taken from the same registry.
	Generation uint64
	// Label is the catalogue's semantic version, or nil when unlabelled.
	Label *semver.Version
}

func (v Version) String() string {
	if v.Label == nil {
		return fmt.Sprintf("gen-%d", v.Generation)
	}
	return fmt.Sprintf("gen-%d (v%s)", v.Generation, v.Label)
}

// Repository is an immutable catalogue of functions indexed by output name.
type Repository struct {
	version  Version
	entries  []*Entry
	byOutput map[string][]*Entry
	byID     map[string]*Entry
}

func newRepository(v Version, entries []*Entry) *Repository {
	repo := &Repository{
		version:  v,
		entries:  entries,
		byOutput: make(map[string][]*Entry),
		byID:     make(map[string]*Entry, len(entries)),
	}
	for _, e := range entries {
		repo.byID[e.Function.ID()] = e
		seen := make(map[string]struct{})
		for _, name := range e.Function.Outputs() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			repo.byOutput[name] = append(repo.byOutput[name], e)
		}
	}
	for _, list := range repo.byOutput {
		sort.SliceStable(list, func(i, j int) bool {
			return Less(list[i], list[j])
		})
	}
	return repo
}

// Less is the candidate ordering: higher priority first, then declaration order.
func Less(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Order < b.Order
}

// Version returns the snapshot version.
func (r *Repository) Version() Version { return r.version }

// Candidates returns the functions declaring valueName as an output, in
// candidate order. The slice is a copy.
func (r *Repository) Candidates(valueName string) []*Entry {
	return append([]*Entry(nil), r.byOutput[valueName]...)
}

// Lookup finds a function by id.
func (r *Repository) Lookup(id string) (*Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Entries returns all functions in declaration order.
func (r *Repository) Entries() []*Entry {
	return append([]*Entry(nil), r.entries...)
}

// Len returns the number of functions.
func (r *Repository) Len() int { return len(r.entries) }
