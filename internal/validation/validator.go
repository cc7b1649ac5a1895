// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package validation provides struct validation using go-playground/validator v10.
// It provides a thread-safe singleton validator instance with custom validators
// for catalog identifiers, usernames and market codes.
//
// Example usage:
//
//	type SearchRequest struct {
//	    Query  string `validate:"required,min=1,max=100"`
//	    Limit  int    `validate:"min=1,max=50"`
//	    Market string `validate:"omitempty,market"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	// trackURIPattern matches catalog track URIs such as spotify:track:4uLU6hMCjMI75M1A2tKUQC.
	trackURIPattern = regexp.MustCompile(`^spotify:track:[a-zA-Z0-9]{16,22}$`)

	// trackIDPattern matches bare catalog track IDs.
	trackIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{16,22}$`)

	// playlistRefPattern matches playlist URIs and bare playlist IDs.
	playlistRefPattern = regexp.MustCompile(`^(spotify:playlist:)?[a-zA-Z0-9]{16,22}$`)

	// usernamePattern restricts usernames to letters, digits and underscores.
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

	// marketPattern matches ISO 3166-1 alpha-2 market codes.
	marketPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// IsTrackURI reports whether s is a well-formed catalog track URI.
func IsTrackURI(s string) bool {
	return trackURIPattern.MatchString(s)
}

// IsTrackID reports whether s is a well-formed bare catalog track ID.
func IsTrackID(s string) bool {
	return trackIDPattern.MatchString(s)
}

// IsPlaylistRef reports whether s is a playlist URI or bare playlist ID.
func IsPlaylistRef(s string) bool {
	return playlistRefPattern.MatchString(s)
}

// IsUsername reports whether s is an acceptable username.
func IsUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// IsMarket reports whether s is an ISO 3166-1 alpha-2 market code.
func IsMarket(s string) bool {
	return marketPattern.MatchString(s)
}

// SanitizeString trims whitespace and removes characters that are unsafe to
// echo back into HTML or quoted contexts.
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "", `"`, "", "'", "").Replace(s))
}

// ValidationError represents a single field validation error with structured information.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the struct field name that failed validation.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "50" for "max=50").
func (e *ValidationError) Param() string {
	return e.param
}

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} {
	return e.value
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError represents a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for i := range ve.errors {
		messages = append(messages, ve.errors[i].Error())
	}
	return strings.Join(messages, "; ")
}

// APIError is the API-facing shape of a validation failure.
// It mirrors api.APIError to avoid an import cycle.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts validation errors to the API error format.
func (ve *RequestValidationError) ToAPIError() *APIError {
	if len(ve.errors) == 0 {
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	}

	if len(ve.errors) == 1 {
		err := ve.errors[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: err.message,
			Details: map[string]interface{}{
				"field": err.field,
				"tag":   err.tag,
				"value": err.value,
			},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	messages := make([]string, 0, len(ve.errors))
	for i, err := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   err.field,
			"tag":     err.tag,
			"message": err.message,
		}
		messages = append(messages, fmt.Sprintf("%s: %s", err.field, err.message))
	}

	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the singleton validator instance.
// The validator is initialized once with custom validators and options.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		mustRegister(validate, "track_uri", func(fl validator.FieldLevel) bool {
			return IsTrackURI(fl.Field().String())
		})
		mustRegister(validate, "track_ref", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return IsTrackURI(s) || IsTrackID(s)
		})
		mustRegister(validate, "username", func(fl validator.FieldLevel) bool {
			return IsUsername(fl.Field().String())
		})
		mustRegister(validate, "market", func(fl validator.FieldLevel) bool {
			return marketPattern.MatchString(fl.Field().String())
		})
	})

	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required":  "%s is required",
	"email":     "%s must be a valid email address",
	"track_uri": "%s must be a track URI like spotify:track:<id>",
	"track_ref": "%s must be a track URI or track ID",
	"username":  "%s must be 3-30 characters of letters, digits or underscores",
	"market":    "%s must be a two-letter uppercase market code",
	"dive":      "%s contains an invalid element",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	isString := fe.Kind().String() == "string"

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
