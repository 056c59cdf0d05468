package types

import (
	"fmt"

	"github.com/spf13/cast"
)

// Draft is the editable scratch record behind a create or edit form.
// Set assigns the field named by its JSON key, coercing value to the field's
// type. It performs no validation beyond the coercion.
type Draft interface {
	Set(key string, value any) error
}

func unknownField(key string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, key)
}

func invalidValue(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
}

func setString(dst *string, key string, value any) error {
	s, err := cast.ToStringE(value)
	if err != nil {
		return invalidValue(key, err)
	}
	*dst = s
	return nil
}

func setID(dst *ID, key string, value any) error {
	if id, ok := value.(ID); ok {
		*dst = id
		return nil
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return invalidValue(key, err)
	}
	*dst = ID(s)
	return nil
}

func setFloat(dst *float64, key string, value any) error {
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return invalidValue(key, err)
	}
	*dst = f
	return nil
}

// setOptionalInt clears dst for nil or an empty string, the way an emptied
// numeric input reads.
func setOptionalInt(dst **int, key string, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	if s, ok := value.(string); ok && s == "" {
		*dst = nil
		return nil
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return invalidValue(key, err)
	}
	*dst = &n
	return nil
}
