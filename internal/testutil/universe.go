package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/valuegraph/internal/value"
)

// Universe is a map-backed value.TargetResolver. Targets not added explicitly
// resolve to attribute-less targets unless Strict is set.
type Universe struct {
	Targets map[value.TargetSpec]*value.ComputationTarget
	Strict  bool
}

// NewUniverse creates a universe containing targets.
func NewUniverse(targets ...*value.ComputationTarget) *Universe {
	u := &Universe{Targets: make(map[value.TargetSpec]*value.ComputationTarget)}
	for _, t := range targets {
		u.Targets[t.Spec()] = t
	}
	return u
}

func (u *Universe) ResolveTarget(_ context.Context, spec value.TargetSpec) (*value.ComputationTarget, bool) {
	if t, ok := u.Targets[spec]; ok {
		return t, true
	}
	if u.Strict {
		return nil, false
	}
	return value.NewTarget(spec, nil), true
}

// TargetsVersion digests the contents, so equal universes share cached
// outcomes and any edit to Targets or Strict moves the version.
func (u *Universe) TargetsVersion() string {
	lines := make([]string, 0, len(u.Targets)+1)
	lines = append(lines, fmt.Sprintf("strict=%t", u.Strict))
	for spec, t := range u.Targets {
		attrs := t.Attributes()
		var b strings.Builder
		b.WriteString(spec.String())
		for _, k := range slices.Sorted(maps.Keys(attrs)) {
			fmt.Fprintf(&b, ";%s=%s", k, attrs[k])
		}
		for _, c := range t.Children() {
			fmt.Fprintf(&b, ";>%s", c)
		}
		lines = append(lines, b.String())
	}
	slices.Sort(lines[1:])
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:8])
}
