package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/js-playground/internal/apperror"
)

// maxJSONBody bounds request bodies for the JSON endpoints. Code itself is
// limited further by the services.
const maxJSONBody = 1 << 20

// Validator checks request DTOs against their `validate` tags and reports
// failures by their JSON field name.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate returns an *apperror.AppError for the first failing field.
func (v *Validator) Validate(dto any) error {
	err := v.validate.Struct(dto)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating request: %w", err)
	}

	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// decodeJSON reads a size-limited JSON body into dto and validates it.
func (v *Validator) decodeJSON(w http.ResponseWriter, r *http.Request, dto any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dto); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperror.ValidationFailed("", fmt.Sprintf("request body must be %d bytes or less", tooBig.Limit))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body is required")
		default:
			return apperror.ValidationFailed("", "request body is not valid JSON: "+err.Error())
		}
	}

	return v.Validate(dto)
}

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	Code string `json:"code"`
	Mode string `json:"mode" validate:"omitempty,oneof=units script"`
}

// SnippetRequest is the body of POST and PUT /api/snippets.
type SnippetRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Code        string `json:"code"`
	Mode        string `json:"mode" validate:"omitempty,oneof=units script"`
}

// GenerateRequest is the body of POST /api/assist/generate.
type GenerateRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

// ImproveRequest is the body of POST /api/assist/improve.
type ImproveRequest struct {
	Code string `json:"code" validate:"required"`
}
