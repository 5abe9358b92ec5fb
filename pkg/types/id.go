package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// ID is a primary-key value. It wraps a single string so that key
// comparison and query-parameter serialization operate on a distinct type
// rather than a bare string.
//
// ID has no String method. Generic formatting (fmt.Sprint) yields the struct
// form, e.g. "{123}"; code that builds query parameters must go through
// Value or Primitive.
type ID struct {
	value string
}

var (
	_ driver.Valuer = ID{}
)

// NewID returns an ID holding v unchanged.
func NewID(v string) ID {
	return ID{value: v}
}

// Primitive returns the underlying string.
func (id ID) Primitive() string {
	return id.value
}

// IsZero reports whether the ID holds the empty string.
func (id ID) IsZero() bool {
	return id.value == ""
}

// Equal reports whether both IDs hold the same underlying value.
func (id ID) Equal(other ID) bool {
	return id.value == other.value
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	return id.value, nil
}

// Scan implements sql.Scanner. Integer keys are accepted so that numeric
// columns written by other tools still hydrate.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		id.value = ""
	case string:
		id.value = v
	case []byte:
		id.value = string(v)
	case int64:
		id.value = strconv.FormatInt(v, 10)
	default:
		return fmt.Errorf("%w: cannot scan %T into ID", ErrInvalidID, src)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	id.value = string(text)
	return nil
}
