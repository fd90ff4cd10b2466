// Package identifier provides the validated SQL identifier used as a column
// key in result tables.
package identifier

import (
	"errors"
	"strings"

	"github.com/ajitpratap0/resultset/pkg/rserrors"
)

// MaxLength is the longest accepted identifier, in bytes.
const MaxLength = 64

// ErrInvalid is the cause of every identifier parse failure.
var ErrInvalid = errors.New("invalid identifier")

// Identifier is a validated, normalized SQL name. The zero value is not a
// valid identifier; obtain one through Parse or MustParse.
//
// Unquoted names are case-insensitive and stored lower-cased. A double-quoted
// name keeps its case and may contain any character except the quote itself.
type Identifier struct {
	name string
}

// Parse validates s and returns the corresponding Identifier.
func Parse(s string) (Identifier, error) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		inner := s[1 : len(s)-1]
		if inner == "" || strings.ContainsRune(inner, '"') || len(inner) > MaxLength {
			return Identifier{}, invalid(s, "malformed quoted identifier")
		}
		return Identifier{name: inner}, nil
	}

	if s == "" {
		return Identifier{}, invalid(s, "identifier is empty")
	}
	if len(s) > MaxLength {
		return Identifier{}, invalid(s, "identifier is too long")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
			if i == 0 {
				return Identifier{}, invalid(s, "identifier starts with a digit")
			}
		default:
			return Identifier{}, invalid(s, "identifier contains an invalid character").
				WithDetail("position", i)
		}
	}
	return Identifier{name: strings.ToLower(s)}, nil
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseNormalized restores an Identifier from the output of String. Names
// that are already in unquoted normal form parse as such; anything else is
// treated as the body of a quoted identifier.
func ParseNormalized(s string) (Identifier, error) {
	if id, err := Parse(s); err == nil && id.name == s {
		return id, nil
	}
	return Parse(`"` + s + `"`)
}

// String returns the normalized name.
func (id Identifier) String() string {
	return id.name
}

// IsZero reports whether id is the zero value.
func (id Identifier) IsZero() bool {
	return id.name == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the
// normalized form produced by MarshalText.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseNormalized(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func invalid(input, message string) *rserrors.Error {
	return rserrors.Wrap(ErrInvalid, rserrors.ErrorTypeValidation, message).
		WithDetail("input", input)
}
