package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError marks a numeric field value that could not be parsed or
// falls outside the field's declared range. Surfaced to callers as a
// rejected submission.
type ValidationError struct {
	Field  string
	Value  string
	reason error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field %s: invalid value %q: %v", e.Field, e.Value, e.reason)
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// UnknownCategoryError marks a categorical raw value that is not in the
// field's value table.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e UnknownCategoryError) Error() string {
	return fmt.Sprintf("field %s: unknown category %q", e.Field, e.Value)
}

func IsUnknownCategoryError(err error) bool {
	var ue UnknownCategoryError
	return errors.As(err, &ue)
}

// SchemaMismatchError indicates a fitted model's feature list no longer
// matches the live schema. This is a programming error: the model and
// schema must be versioned together, so it is treated as unrecoverable.
type SchemaMismatchError struct {
	Want []string
	Got  []string
}

func (e SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: want [%s], got [%s]",
		strings.Join(e.Want, " "), strings.Join(e.Got, " "))
}

func IsSchemaMismatchError(err error) bool {
	var se SchemaMismatchError
	return errors.As(err, &se)
}
