package market

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden          = errors.New("not allowed to modify this record")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrInvalidCredentials = errors.New("username or password is invalid")
)

// ValidationError reports malformed input. It is shown to the user on the
// form that produced it and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that an operation needed a record that does not
// exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func notFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
