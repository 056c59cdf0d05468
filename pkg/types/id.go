package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID identifies an entity. The service issues numeric identifiers but the
// client treats them as opaque: an ID decodes from either a JSON number or a
// JSON string and two IDs are equal when their text is equal.
type ID string

// ParseID returns the ID for s with surrounding whitespace removed.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidID
	}
	return ID(s), nil
}

// String returns the textual form of the ID.
func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id == "" }

// MarshalJSON encodes canonical integers as JSON numbers and everything else
// as a JSON string. The zero ID encodes as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if isCanonicalInt(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a number, a string, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	*id = ID(n.String())
	return nil
}

// isCanonicalInt reports whether s is an integer without sign or leading
// zeros, i.e. text that round-trips through a JSON number unchanged.
func isCanonicalInt(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
