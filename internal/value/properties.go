package value

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"unicode"
)

// ErrInvalidProperties is returned when a property string cannot be parsed.
var ErrInvalidProperties = errors.New("invalid value properties")

// PropertyFunction is the property every specification carries, naming the
// function that produces it.
const PropertyFunction = "Function"

// constraint is the value set of one property key. A wildcard constraint has no
// values. Values are kept sorted and de-duplicated.
type constraint struct {
	values   []string
	wildcard bool
}

// ValueProperties is an immutable mapping from property key to a constraint.
// On a requirement the constraint lists acceptable values (or is a wildcard);
// on a resolved specification every key is bound to exactly one value.
//
// The zero value has no properties.
type ValueProperties struct {
	props map[string]constraint
}

// PropertiesBuilder accumulates properties before freezing them with Get.
type PropertiesBuilder struct {
	props map[string]constraint
}

// Properties starts a new property set.
func Properties() *PropertiesBuilder {
	return &PropertiesBuilder{props: make(map[string]constraint)}
}

// With adds acceptable values for key. Repeated calls merge value sets. A key
// previously marked as a wildcard stays a wildcard.
func (b *PropertiesBuilder) With(key string, values ...string) *PropertiesBuilder {
	c := b.props[key]
	if c.wildcard {
		return b
	}
	c.values = normalize(append(slices.Clone(c.values), values...))
	b.props[key] = c
	return b
}

// WithAny marks key as a wildcard.
func (b *PropertiesBuilder) WithAny(key string) *PropertiesBuilder {
	b.props[key] = constraint{wildcard: true}
	return b
}

// Get freezes the builder into an immutable property set. Keys given no values
// and no wildcard are treated as wildcards.
func (b *PropertiesBuilder) Get() ValueProperties {
	if len(b.props) == 0 {
		return ValueProperties{}
	}
	out := make(map[string]constraint, len(b.props))
	for k, c := range b.props {
		if !c.wildcard && len(c.values) == 0 {
			c = constraint{wildcard: true}
		}
		out[k] = c
	}
	return ValueProperties{props: out}
}

func normalize(values []string) []string {
	sort.Strings(values)
	return slices.Compact(values)
}

// IsEmpty reports whether no key is present.
func (p ValueProperties) IsEmpty() bool { return len(p.props) == 0 }

// Len returns the number of keys.
func (p ValueProperties) Len() int { return len(p.props) }

// Keys returns the keys in sorted order.
func (p ValueProperties) Keys() []string {
	keys := make([]string, 0, len(p.props))
	for k := range p.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is present (constrained or wildcard).
func (p ValueProperties) Has(key string) bool {
	_, ok := p.props[key]
	return ok
}

// IsWildcard reports whether key is present as a wildcard.
func (p ValueProperties) IsWildcard(key string) bool {
	return p.props[key].wildcard
}

// Values returns the sorted values of key, or nil when the key is absent or a wildcard.
func (p ValueProperties) Values(key string) []string {
	c, ok := p.props[key]
	if !ok || c.wildcard {
		return nil
	}
	return slices.Clone(c.values)
}

// Value returns the single value bound to key.
func (p ValueProperties) Value(key string) (string, bool) {
	c, ok := p.props[key]
	if !ok || c.wildcard || len(c.values) != 1 {
		return "", false
	}
	return c.values[0], true
}

// IsConcrete reports whether every key is bound to exactly one value.
func (p ValueProperties) IsConcrete() bool {
	for _, c := range p.props {
		if c.wildcard || len(c.values) != 1 {
			return false
		}
	}
	return true
}

// IsSatisfiedBy reports whether other meets every constraint of p. Keys absent
// from p are ignored; a wildcard in p accepts any present value; otherwise every
// value of other must be one of p's acceptable values.
func (p ValueProperties) IsSatisfiedBy(other ValueProperties) bool {
	for k, want := range p.props {
		have, ok := other.props[k]
		if !ok {
			return false
		}
		if want.wildcard {
			continue
		}
		if have.wildcard {
			return false
		}
		for _, v := range have.values {
			if _, found := slices.BinarySearch(want.values, v); !found {
				return false
			}
		}
	}
	return true
}

// With returns a copy of p where key is bound to the given values.
func (p ValueProperties) With(key string, values ...string) ValueProperties {
	out := p.clone()
	if len(values) == 0 {
		out[key] = constraint{wildcard: true}
	} else {
		out[key] = constraint{values: normalize(slices.Clone(values))}
	}
	return ValueProperties{props: out}
}

// WithAny returns a copy of p where key is a wildcard.
func (p ValueProperties) WithAny(key string) ValueProperties {
	out := p.clone()
	out[key] = constraint{wildcard: true}
	return ValueProperties{props: out}
}

// Without returns a copy of p with key removed.
func (p ValueProperties) Without(key string) ValueProperties {
	if !p.Has(key) {
		return p
	}
	out := p.clone()
	delete(out, key)
	return ValueProperties{props: out}
}

// Compose returns p with every key of defaults that p does not mention added.
func (p ValueProperties) Compose(defaults ValueProperties) ValueProperties {
	if defaults.IsEmpty() {
		return p
	}
	out := p.clone()
	for k, c := range defaults.props {
		if _, ok := out[k]; !ok {
			out[k] = c
		}
	}
	return ValueProperties{props: out}
}

// Intersect returns the values acceptable to both p and other for key. The
// second result is false when the intersection is empty. Two wildcards yield a
// wildcard, reported as a nil slice with true.
func (p ValueProperties) Intersect(key string, other ValueProperties) ([]string, bool) {
	a, aok := p.props[key]
	b, bok := other.props[key]
	switch {
	case !aok && !bok:
		return nil, true
	case !aok || a.wildcard:
		if !bok || b.wildcard {
			return nil, true
		}
		return slices.Clone(b.values), true
	case !bok || b.wildcard:
		return slices.Clone(a.values), true
	}
	var out []string
	for _, v := range a.values {
		if _, found := slices.BinarySearch(b.values, v); found {
			out = append(out, v)
		}
	}
	return out, len(out) > 0
}

// Equal reports structural equality.
func (p ValueProperties) Equal(other ValueProperties) bool {
	if len(p.props) != len(other.props) {
		return false
	}
	for k, a := range p.props {
		b, ok := other.props[k]
		if !ok || a.wildcard != b.wildcard || !slices.Equal(a.values, b.values) {
			return false
		}
	}
	return true
}

// Map returns the properties as plain data; wildcards are rendered as ["*"].
func (p ValueProperties) Map() map[string][]string {
	out := make(map[string][]string, len(p.props))
	for k, c := range p.props {
		if c.wildcard {
			out[k] = []string{"*"}
			continue
		}
		out[k] = slices.Clone(c.values)
	}
	return out
}

// String returns the canonical form, e.g. `A=[bar,foo],B=*,C=x`.
func (p ValueProperties) String() string {
	var sb strings.Builder
	for i, k := range p.Keys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(escape(k))
		sb.WriteByte('=')
		c := p.props[k]
		switch {
		case c.wildcard:
			sb.WriteByte('*')
		case len(c.values) == 1:
			sb.WriteString(escape(c.values[0]))
		default:
			sb.WriteByte('[')
			for j, v := range c.values {
				if j > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(escape(v))
			}
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (p ValueProperties) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ValueProperties) UnmarshalText(text []byte) error {
	parsed, err := ParseProperties(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p ValueProperties) clone() map[string]constraint {
	out := make(map[string]constraint, len(p.props)+1)
	for k, c := range p.props {
		out[k] = c
	}
	return out
}

const specialChars = `\,=[]*`

func escape(s string) string {
	if !strings.ContainsAny(s, specialChars) && !strings.ContainsFunc(s, unicode.IsSpace) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) || unicode.IsSpace(r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
