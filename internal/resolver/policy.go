package resolver

import (
	"fmt"
	"strings"

	"github.com/vk/valuegraph/internal/value"
)

// BindingPolicy supplies a default for a property that neither the function
// template nor the requirement pins down.
type BindingPolicy interface {
	Default(valueName, key string) (string, bool)
}

// PolicyFunc adapts a function to BindingPolicy.
type PolicyFunc func(valueName, key string) (string, bool)

func (f PolicyFunc) Default(valueName, key string) (string, bool) { return f(valueName, key) }

// NoDefaults never supplies a value.
var NoDefaults BindingPolicy = PolicyFunc(func(string, string) (string, bool) { return "", false })

// Chain consults each policy in turn; the first hit wins.
type Chain []BindingPolicy

func (c Chain) Default(valueName, key string) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if v, ok := p.Default(valueName, key); ok {
			return v, true
		}
	}
	return "", false
}

// PropertyDefaults is a policy read from a property string such as
// `CurveCalculationConfig=Default,PresentValue.Currency=USD`. A key of the
// form `ValueName.Key` applies only to that value name and takes precedence
// over a plain key.
type PropertyDefaults struct {
	global   map[string]string
	perValue map[string]map[string]string
}

// ParsePropertyDefaults parses a default-property string. Every default must
// be a single value.
func ParsePropertyDefaults(raw string) (*PropertyDefaults, error) {
	props, err := value.ParseProperties(raw)
	if err != nil {
		return nil, err
	}
	d := &PropertyDefaults{
		global:   make(map[string]string),
		perValue: make(map[string]map[string]string),
	}
	for _, k := range props.Keys() {
		v, ok := props.Value(k)
		if !ok {
			return nil, fmt.Errorf("%w: default for %q must be a single value", value.ErrInvalidProperties, k)
		}
		name, key, scoped := strings.Cut(k, ".")
		if !scoped {
			d.global[k] = v
			continue
		}
		if name == "" || key == "" {
			return nil, fmt.Errorf("%w: malformed scoped default %q", value.ErrInvalidProperties, k)
		}
		if d.perValue[name] == nil {
			d.perValue[name] = make(map[string]string)
		}
		d.perValue[name][key] = v
	}
	return d, nil
}

// MustParsePropertyDefaults is like ParsePropertyDefaults but panics on error.
func MustParsePropertyDefaults(raw string) *PropertyDefaults {
	d, err := ParsePropertyDefaults(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *PropertyDefaults) Default(valueName, key string) (string, bool) {
	if scoped, ok := d.perValue[valueName]; ok {
		if v, ok := scoped[key]; ok {
			return v, true
		}
	}
	v, ok := d.global[key]
	return v, ok
}

// String renders the defaults in canonical property-string form.
func (d *PropertyDefaults) String() string {
	b := value.Properties()
	for k, v := range d.global {
		b.With(k, v)
	}
	for name, scoped := range d.perValue {
		for k, v := range scoped {
			b.With(name+"."+k, v)
		}
	}
	return b.Get().String()
}

// String joins the string forms of the chained policies that have one.
func (c Chain) String() string {
	parts := make([]string, 0, len(c))
	for _, p := range c {
		if s, ok := p.(fmt.Stringer); ok {
			parts = append(parts, s.String())
		}
	}
	return strings.Join(parts, ";")
}
