// internal/uid/uid.go
package uid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned when an identifier does not follow the canonical format.
var ErrInvalid = errors.New("invalid unique identifier")

// partRegex restricts each part to characters that are safe inside property strings.
var partRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-/]+$`)

// UniqueID is the structured form of a target identifier. It is comparable and
// can be used directly as a map key.
type UniqueID struct {
	Scheme  string
	Value   string
	Version string // empty when the identifier is unversioned
}

// Of builds an unversioned identifier. It panics on invalid parts, which makes it
// suitable for package-level fixtures and tests.
func Of(scheme, value string) UniqueID {
	id := UniqueID{Scheme: scheme, Value: value}
	if err := id.validate(); err != nil {
		panic(err)
	}
	return id
}

// Parse creates a UniqueID from its canonical string representation.
func Parse(raw string) (UniqueID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UniqueID{}, fmt.Errorf("%w: identifier cannot be empty", ErrInvalid)
	}

	parts := strings.Split(raw, "~")
	if len(parts) < 2 || len(parts) > 3 {
		return UniqueID{}, fmt.Errorf("%w: %q must have the form Scheme~Value[~Version]", ErrInvalid, raw)
	}

	id := UniqueID{Scheme: parts[0], Value: parts[1]}
	if len(parts) == 3 {
		id.Version = parts[2]
	}
	if err := id.validate(); err != nil {
		return UniqueID{}, err
	}
	return id, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) UniqueID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (id UniqueID) validate() error {
	if !partRegex.MatchString(id.Scheme) {
		return fmt.Errorf("%w: invalid scheme %q", ErrInvalid, id.Scheme)
	}
	if !partRegex.MatchString(id.Value) {
		return fmt.Errorf("%w: invalid value %q", ErrInvalid, id.Value)
	}
	if id.Version != "" && !partRegex.MatchString(id.Version) {
		return fmt.Errorf("%w: invalid version %q", ErrInvalid, id.Version)
	}
	return nil
}

// IsZero reports whether the identifier is unset.
func (id UniqueID) IsZero() bool {
	return id == UniqueID{}
}

// String serializes the identifier into its canonical representation.
func (id UniqueID) String() string {
	if id.IsZero() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(id.Scheme)
	sb.WriteRune('~')
	sb.WriteString(id.Value)
	if id.Version != "" {
		sb.WriteRune('~')
		sb.WriteString(id.Version)
	}
	return sb.String()
}

// Unversioned returns the identifier without its version part.
func (id UniqueID) Unversioned() UniqueID {
	return UniqueID{Scheme: id.Scheme, Value: id.Value}
}
