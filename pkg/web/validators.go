package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// Gt returns a ParamValidator that checks if the argument is greater than the value captured in the closure.
func Gt(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue > closedValue
	})
}

// Lte returns a ParamValidator that checks if the argument is at most the value captured in the closure.
func Lte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue <= closedValue
	})
}

// ParseIntParam reads an optional integer query parameter. An absent parameter yields def.
// It answers 400 itself and returns false when the value is not an integer or fails a validator.
func ParseIntParam(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, def int, validators ...ParamValidator) (int, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	for _, v := range validators {
		if !v(intValue) {
			RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
			return 0, false
		}
	}
	return int(intValue), true
}

// ParseBoolParam reads an optional boolean query parameter. An absent parameter yields false.
func ParseBoolParam(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string) (bool, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return false, true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s flag: %s", key, value))
		return false, false
	}
	return b, true
}
