// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/amirphl/country-gdp-service/app/dto"
	"github.com/amirphl/country-gdp-service/utils"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Error messages rendered in the "error" field of failed responses
const (
	msgValidationFailed   = "Validation failed"
	msgSourceUnavailable  = "External data source unavailable"
	msgCountryNotFound    = "Country not found"
	msgImageNotFound      = "Summary image not found"
	msgInternalError      = "Internal server error"
	msgInvalidRequestBody = "Invalid request body"
)

// newValidator reports failing fields by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		return "must be at least " + err.Param() + " characters"
	case "max":
		return "must be at most " + err.Param() + " characters"
	case "len":
		return "must be exactly " + err.Param() + " characters"
	case "oneof":
		return "must be one of: " + err.Param()
	case "url":
		return "must be a valid URL"
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", err.Param())
	default:
		return "is invalid"
	}
}

// validationDetails flattens validator errors into a field -> message map, first failure per field
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		details["non_field_errors"] = err.Error()
		return details
	}
	for _, fe := range fieldErrors {
		if _, exists := details[fe.Field()]; exists {
			continue
		}
		details[fe.Field()] = getValidationErrorMessage(fe)
	}
	return details
}

// bindJSON decodes the request body into out; an empty body leaves out untouched
// The returned map is non-nil when the body cannot be decoded
func bindJSON(c fiber.Ctx, out any) map[string]string {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.Bind().JSON(out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return map[string]string{typeErr.Field: "must be a " + typeErr.Type.String()}
		}
		return map[string]string{"non_field_errors": msgInvalidRequestBody}
	}
	return nil
}

// createRequestContextWithTimeout detaches the work from the client connection and bounds it by timeout
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id := requestid.FromContext(c); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

// ErrorResponse writes the standard error body
func ErrorResponse(c fiber.Ctx, statusCode int, message string, details any) error {
	return c.Status(statusCode).JSON(dto.ErrorResponse{
		Error:   message,
		Details: details,
	})
}
