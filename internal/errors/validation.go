package errors

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FromValidator converts validator.ValidationErrors into a *ValidationError keyed by struct field name.
// Other errors are returned unchanged.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return &ValidationError{Fields: fields}
}
