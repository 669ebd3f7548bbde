// Package validators holds request payloads and their validation rules.
package validators

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// phonePattern accepts at most three digit groups with one optional space, dash
// or dot between them, an optional leading + and an optional parenthesised
// group: +1 (555) 1234567, (555) 555-1234, 020.7946.0958. A fourth group such as
// +1 (555) 123-4567 is rejected.
var phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,9}$`)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

// ValidationError describes one failed rule
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationResponse is the 400 body for invalid payloads
type ValidationResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors"`
}

// Validate runs struct-tag validation and returns every failure
func Validate(data interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(data)
	if err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errs {
				validationErrors = append(validationErrors, ValidationError{
					Field:   e.Field(),
					Tag:     e.Tag(),
					Value:   e.Param(),
					Message: message(e),
				})
			}
		}
	}

	return validationErrors
}

// Fields flattens errors into field -> message
func Fields(errs []ValidationError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// IsEmail reports whether s is a syntactically valid email address
func IsEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must not be empty"
	}
	return "is invalid"
}

var dangerousScheme = regexp.MustCompile(`(?i)^\s*(javascript|data|vbscript):`)

// SanitizeURL drops script-capable URLs and adds https:// when the scheme is missing.
// It returns "" for empty or dangerous input.
func SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || dangerousScheme.MatchString(raw) {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}
