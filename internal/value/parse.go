package value

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseProperties parses the canonical property syntax produced by
// ValueProperties.String, e.g. `Currency=[EUR,USD],Curve=*,Config=Default`.
// Unescaped whitespace is ignored and the empty string yields no properties.
// The characters `\ , = [ ] *` can be escaped with a backslash.
func ParseProperties(raw string) (ValueProperties, error) {
	p := &propertyParser{input: []rune(raw)}
	b := Properties()
	seen := make(map[string]struct{})

	p.skipSpace()
	if p.done() {
		return ValueProperties{}, nil
	}
	for {
		key, err := p.token()
		if err != nil {
			return ValueProperties{}, err
		}
		if key == "" {
			return ValueProperties{}, p.errorf("empty property key")
		}
		if _, dup := seen[key]; dup {
			return ValueProperties{}, p.errorf("duplicate property key %q", key)
		}
		seen[key] = struct{}{}

		if !p.consume('=') {
			return ValueProperties{}, p.errorf("expected '=' after key %q", key)
		}

		switch {
		case p.consume('*'):
			b.WithAny(key)
		case p.consume('['):
			values, err := p.list()
			if err != nil {
				return ValueProperties{}, err
			}
			if len(values) == 0 {
				return ValueProperties{}, p.errorf("empty value list for key %q", key)
			}
			b.With(key, values...)
		default:
			v, err := p.token()
			if err != nil {
				return ValueProperties{}, err
			}
			if v == "" {
				return ValueProperties{}, p.errorf("missing value for key %q", key)
			}
			b.With(key, v)
		}

		if p.done() {
			return b.Get(), nil
		}
		if !p.consume(',') {
			return ValueProperties{}, p.errorf("expected ',' between properties")
		}
	}
}

// MustParseProperties is like ParseProperties but panics on error.
func MustParseProperties(raw string) ValueProperties {
	p, err := ParseProperties(raw)
	if err != nil {
		panic(err)
	}
	return p
}

type propertyParser struct {
	input []rune
	pos   int
}

func (p *propertyParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrInvalidProperties, p.pos, fmt.Sprintf(format, args...))
}

func (p *propertyParser) done() bool {
	p.skipSpace()
	return p.pos >= len(p.input)
}

func (p *propertyParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *propertyParser) consume(r rune) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

// token reads up to the next unescaped special character.
func (p *propertyParser) token() (string, error) {
	p.skipSpace()
	var sb strings.Builder
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		if r == '\\' {
			if p.pos+1 >= len(p.input) {
				return "", p.errorf("dangling escape")
			}
			sb.WriteRune(p.input[p.pos+1])
			p.pos += 2
			continue
		}
		if strings.ContainsRune(specialChars, r) || unicode.IsSpace(r) {
			break
		}
		sb.WriteRune(r)
		p.pos++
	}
	return sb.String(), nil
}

func (p *propertyParser) list() ([]string, error) {
	var values []string
	if p.consume(']') {
		return values, nil
	}
	for {
		v, err := p.token()
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, p.errorf("empty value in list")
		}
		values = append(values, v)
		if p.consume(']') {
			return values, nil
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or ']' in value list")
		}
	}
}
