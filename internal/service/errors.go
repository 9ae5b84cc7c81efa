package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Kerhoff/WishShare/internal/repository"
)

var (
	// ErrNotFound is returned when the target entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied is returned when the actor fails the access check
	ErrAccessDenied = errors.New("access denied")
	// ErrConflict is returned when the entity's state forbids the operation
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned for bad credentials or tokens
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes one invalid input field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors returns every field error carried by err
func ValidationErrors(err error) []*ValidationError {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*ValidationError
		for _, e := range merr.Errors {
			var ve *ValidationError
			if errors.As(e, &ve) {
				out = append(out, ve)
			}
		}
		return out
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return []*ValidationError{ve}
	}
	return nil
}

// validator collects field errors for a single request
type validator struct {
	errs *multierror.Error
}

func (v *validator) add(field, message string) {
	v.errs = multierror.Append(v.errs, &ValidationError{Field: field, Message: message})
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.add(field, message)
	}
}

func (v *validator) err() error {
	if v.errs == nil {
		return nil
	}
	v.errs.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return "invalid input: " + strings.Join(msgs, "; ")
	}
	return v.errs.ErrorOrNil()
}

// fromRepo translates repository sentinels into service errors
func fromRepo(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
