// Hexpulse - Live Hexagonal Event Heatmap
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hexpulse

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/hexpulse/internal/config"
	"github.com/tomtom215/hexpulse/internal/geocell"
	"github.com/tomtom215/hexpulse/internal/models"
)

// CodeValidationError is the API error code for a rejected request body.
const CodeValidationError = "VALIDATION_ERROR"

var (
	instance     *validator.Validate
	instanceOnce sync.Once
)

// FieldError is one rejected field, named by its json tag.
type FieldError struct {
	Field   string      `json:"field"`
	Rule    string      `json:"tag"`
	Param   string      `json:"-"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

func (f FieldError) Error() string { return f.Message }

// RequestValidationError is every field failure of one request body.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, f := range e.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}

// ToAPIError renders the failure for the response envelope. A single
// failure puts field, tag and value in Details; several are listed under
// Details["fields"] and prefixed by field name in the message.
func (e *RequestValidationError) ToAPIError() *models.APIError {
	out := &models.APIError{Code: CodeValidationError, Message: "Validation failed"}
	switch len(e.Fields) {
	case 0:
		return out
	case 1:
		f := e.Fields[0]
		out.Message = f.Message
		out.Details = map[string]interface{}{"field": f.Field, "tag": f.Rule, "value": f.Value}
		return out
	}

	parts := make([]string, len(e.Fields))
	list := make([]map[string]interface{}, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
		list[i] = map[string]interface{}{"field": f.Field, "tag": f.Rule, "message": f.Message}
	}
	out.Message = strings.Join(parts, "; ")
	out.Details = map[string]interface{}{"fields": list}
	return out
}

// GetValidator returns the shared validator with the h3cell and relayurl
// rules registered.
func GetValidator() *validator.Validate {
	instanceOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		// Only an empty tag or a nil func makes registration fail.
		_ = v.RegisterValidation("h3cell", isH3Cell)
		_ = v.RegisterValidation("relayurl", isRelayURL)
		instance = v
	})
	return instance
}

func jsonFieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func isH3Cell(fl validator.FieldLevel) bool {
	_, err := geocell.NewH3Codec().Resolution(fl.Field().String())
	return err == nil
}

func isRelayURL(fl validator.FieldLevel) bool {
	return config.ValidateBaseURL(strings.TrimRight(strings.TrimSpace(fl.Field().String()), "/")) == nil
}

// ValidateStruct checks s against its validate tags. A nil result means s
// is valid.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Rule: "unknown", Message: err.Error()}}}
	}

	out := &RequestValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: describe(fe),
		})
	}
	return out
}

// describe turns a validator failure into a sentence naming the field.
func describe(fe validator.FieldError) string {
	name, p := fe.Field(), fe.Param()
	chars := ""
	if fe.Kind() == reflect.String {
		chars = " characters"
	}

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "h3cell":
		return name + " must be a valid H3 cell id"
	case "relayurl":
		return name + " must be an absolute http(s) URL without query or fragment"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, p)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", name, p, chars)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", name, p, chars)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, p)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, p)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", name, p)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, p)
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}
