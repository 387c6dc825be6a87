package value

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/vk/valuegraph/internal/uid"
)

// TargetType is the discriminator of a ComputationTarget.
type TargetType string

const (
	TargetPrimitive     TargetType = "PRIMITIVE"
	TargetSecurity      TargetType = "SECURITY"
	TargetPosition      TargetType = "POSITION"
	TargetTrade         TargetType = "TRADE"
	TargetPortfolioNode TargetType = "PORTFOLIO_NODE"

	// TargetAny is only meaningful on functions: it applies to every target type.
	TargetAny TargetType = "ANY"
)

var knownTargetTypes = map[TargetType]struct{}{
	TargetPrimitive:     {},
	TargetSecurity:      {},
	TargetPosition:      {},
	TargetTrade:         {},
	TargetPortfolioNode: {},
	TargetAny:           {},
}

// ParseTargetType validates a raw target type name. Matching is case-insensitive.
func ParseTargetType(raw string) (TargetType, error) {
	t := TargetType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownTargetTypes[t]; !ok {
		return "", fmt.Errorf("unknown target type %q", raw)
	}
	return t, nil
}

// Accepts reports whether a function declared for t can be applied to a target of type other.
func (t TargetType) Accepts(other TargetType) bool {
	return t == TargetAny || t == other
}

// TargetSpec is the comparable reference to a computation target.
type TargetSpec struct {
	Type TargetType
	ID   uid.UniqueID
}

// NewTargetSpec builds a target reference.
func NewTargetSpec(t TargetType, id uid.UniqueID) TargetSpec {
	return TargetSpec{Type: t, ID: id}
}

// ParseTargetSpec parses the canonical `TYPE:Scheme~Value` form.
func ParseTargetSpec(raw string) (TargetSpec, error) {
	typ, id, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return TargetSpec{}, fmt.Errorf("target %q must have the form TYPE:Scheme~Value", raw)
	}
	t, err := ParseTargetType(typ)
	if err != nil {
		return TargetSpec{}, err
	}
	if t == TargetAny {
		return TargetSpec{}, fmt.Errorf("target %q: type ANY cannot name a concrete target", raw)
	}
	u, err := uid.Parse(id)
	if err != nil {
		return TargetSpec{}, fmt.Errorf("target %q: %w", raw, err)
	}
	return TargetSpec{Type: t, ID: u}, nil
}

// MustParseTargetSpec is like ParseTargetSpec but panics on error.
func MustParseTargetSpec(raw string) TargetSpec {
	s, err := ParseTargetSpec(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// String serializes the reference into its canonical representation.
func (s TargetSpec) String() string {
	return string(s.Type) + ":" + s.ID.String()
}

// MarshalText implements encoding.TextMarshaler.
func (s TargetSpec) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TargetSpec) UnmarshalText(text []byte) error {
	parsed, err := ParseTargetSpec(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ComputationTarget identifies what a value is computed about. It is immutable
// once constructed; accessors return copies.
type ComputationTarget struct {
	spec       TargetSpec
	attributes map[string]string
	children   []TargetSpec
}

// NewTarget creates a target. The attribute map and children slice are copied.
func NewTarget(spec TargetSpec, attributes map[string]string, children ...TargetSpec) *ComputationTarget {
	return &ComputationTarget{
		spec:       spec,
		attributes: maps.Clone(attributes),
		children:   append([]TargetSpec(nil), children...),
	}
}

// Spec returns the comparable reference to this target.
func (t *ComputationTarget) Spec() TargetSpec { return t.spec }

// Type returns the target type discriminator.
func (t *ComputationTarget) Type() TargetType { return t.spec.Type }

// ID returns the target identifier.
func (t *ComputationTarget) ID() uid.UniqueID { return t.spec.ID }

// Attribute looks up a single descriptive attribute (e.g. security_type, currency).
func (t *ComputationTarget) Attribute(key string) (string, bool) {
	v, ok := t.attributes[key]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (t *ComputationTarget) Attributes() map[string]string {
	return maps.Clone(t.attributes)
}

// Children returns the child targets of a portfolio node or position.
func (t *ComputationTarget) Children() []TargetSpec {
	return append([]TargetSpec(nil), t.children...)
}

func (t *ComputationTarget) String() string {
	return t.spec.String()
}

// TargetResolver maps target references to full targets. It is provided by the
// surrounding system (the target universe).
type TargetResolver interface {
	ResolveTarget(ctx context.Context, spec TargetSpec) (*ComputationTarget, bool)
}

// VersionedTargetResolver is a TargetResolver that identifies its contents.
// Two resolvers reporting the same version must resolve every reference to
// equal targets, and the version must change whenever the contents do.
type VersionedTargetResolver interface {
	TargetResolver
	TargetsVersion() string
}
