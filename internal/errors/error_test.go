package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func Test_TypedErrors_MatchSentinels(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "validation",
			err:      &ValidationError{Fields: map[string]string{"Price": "min", "Name": "required"}},
			sentinel: ErrValidation,
			message:  "validation failed: Name: required, Price: min",
		},
		{
			name:     "stock exceeded",
			err:      &StockExceededError{ProductID: "1", Requested: 3, Available: 2},
			sentinel: ErrStockExceeded,
			message:  "stock exceeded: product 1. Available: 2, Requested: 3",
		},
		{
			name: "insufficient stock",
			err: &InsufficientStockError{Shortfalls: []Shortfall{
				{ProductID: "1", Requested: 2, Available: 1},
				{ProductID: "9", Requested: 1, Available: -1},
			}},
			sentinel: ErrInsufficientStock,
			message:  "insufficient stock: product 1. Available: 1, Requested: 2; product 9 no longer exists",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			wrapped := fmt.Errorf("operation failed: %w", tc.err)
			// then
			assert.ErrorIs(t, wrapped, tc.sentinel)
			assert.Equal(t, tc.message, tc.err.Error())
		})
	}
}

func Test_ValidationError_As(t *testing.T) {
	err := fmt.Errorf("create: %w", NewValidationError("Stock", "min"))

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, map[string]string{"Stock": "min"}, vErr.Fields)
}

func Test_FromValidator(t *testing.T) {
	type draft struct {
		Name  string `validate:"required"`
		Stock int    `validate:"min=0"`
	}
	// given
	err := validator.New().Struct(draft{Stock: -1})
	// when
	converted := FromValidator(err)
	// then
	var vErr *ValidationError
	if assert.True(t, errors.As(converted, &vErr)) {
		assert.Equal(t, map[string]string{
			"Name":  "failed on rule: required",
			"Stock": "failed on rule: min",
		}, vErr.Fields)
	}
	assert.Nil(t, FromValidator(nil))
	other := fmt.Errorf("boom")
	assert.Same(t, other, FromValidator(other))
}
