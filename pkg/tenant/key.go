package tenant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Key length bounds keep cache keys and log fields sane and reject
// oversized header values outright.
const (
	MinKeyLength = 1
	MaxKeyLength = 63
)

// codePattern matches tenant short codes: alphanumeric start, then
// alphanumerics, hyphens, underscores, or dots.
var codePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Key is a validated tenant resolution key. It is constructed only via
// ParseKey so that adversarial or malformed header values can never
// reach the cache namespace or log output. The zero Key means "no key
// supplied".
type Key struct {
	raw  string
	norm string
	id   uuid.UUID
	isID bool
}

// ParseKey validates and normalizes a raw tenant key taken from request
// metadata. Leading and trailing whitespace is trimmed. A key that
// parses as a UUID is treated as a stable identifier; anything else
// must look like a short code. Returns ErrInvalidTenantKey for input
// that matches neither shape.
func ParseKey(raw string) (Key, error) {
	s := strings.TrimSpace(raw)
	if len(s) < MinKeyLength || len(s) > MaxKeyLength {
		return Key{}, fmt.Errorf("%w: %d bytes", ErrInvalidTenantKey, len(s))
	}

	if id, err := uuid.Parse(s); err == nil {
		return Key{raw: s, norm: "id:" + id.String(), id: id, isID: true}, nil
	}

	if !codePattern.MatchString(s) {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidTenantKey, s)
	}

	return Key{raw: s, norm: "code:" + strings.ToLower(s)}, nil
}

// MustKey is a test and wiring helper that panics on invalid input.
func MustKey(raw string) Key {
	k, err := ParseKey(raw)
	if err != nil {
		panic(err)
	}
	return k
}

// String returns the key as supplied by the caller, trimmed.
func (k Key) String() string { return k.raw }

// Norm returns the namespaced, lowercased cache key
// ("id:<uuid>" or "code:<code>").
func (k Key) Norm() string { return k.norm }

// Code returns the lowercased code portion for code-shaped keys and
// the empty string for id-shaped keys.
func (k Key) Code() string {
	if k.isID {
		return ""
	}
	return strings.TrimPrefix(k.norm, "code:")
}

// ID returns the parsed identifier for id-shaped keys.
func (k Key) ID() uuid.UUID { return k.id }

// IsID reports whether the key is shaped like a stable identifier.
func (k Key) IsID() bool { return k.isID }

// IsZero reports whether no key was supplied.
func (k Key) IsZero() bool { return k.norm == "" }
