// Package businessflow contains the core business logic and use cases for the country mirror
package businessflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Business flow error constants
var (
	// Upstream errors
	ErrCountriesSourceUnavailable = errors.New("could not fetch data from Countries API")
	ErrRatesSourceUnavailable     = errors.New("could not fetch data from Exchange Rates API")

	// Country-related errors
	ErrCountryNotFound      = errors.New("country not found")
	ErrSummaryImageNotFound = errors.New("summary image not found")

	// Input errors
	ErrValidationFailed = errors.New("validation failed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ValidationError carries one message per offending input field
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records the first message reported for field
func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// AsValidationError extracts the field messages of a validation failure
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func IsCountriesSourceUnavailable(err error) bool {
	return errors.Is(err, ErrCountriesSourceUnavailable)
}

func IsRatesSourceUnavailable(err error) bool {
	return errors.Is(err, ErrRatesSourceUnavailable)
}

// IsSourceUnavailable reports whether either upstream dataset could not be fetched
func IsSourceUnavailable(err error) bool {
	return IsCountriesSourceUnavailable(err) || IsRatesSourceUnavailable(err)
}

func IsCountryNotFound(err error) bool {
	return errors.Is(err, ErrCountryNotFound)
}

func IsSummaryImageNotFound(err error) bool {
	return errors.Is(err, ErrSummaryImageNotFound)
}

func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
