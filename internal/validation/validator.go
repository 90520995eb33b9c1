// Package validation checks request bodies with go-playground/validator and
// a few catalog specific tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Church-Life-Apps/Backend/internal/models"
)

type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the custom tags registered:
//
//	notblank   string with at least one non-space character
//	songuuid   well formed, non-nil UUID
//	lyrictype  one of the lyric_type enum values
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name = f.Tag.Get("query")
		}
		return name
	})

	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("songuuid", validateSongUUID)
	_ = v.RegisterValidation("lyrictype", validateLyricType)

	return &Validator{validate: v}
}

var DefaultValidator = NewValidator()

// Validate validates a struct and returns an *Error listing every failing
// field.
func (v *Validator) Validate(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func Validate(s any) error {
	return DefaultValidator.Validate(s)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateSongUUID(fl validator.FieldLevel) bool {
	id, err := uuid.Parse(fl.Field().String())
	return err == nil && id != uuid.Nil
}

func validateLyricType(fl validator.FieldLevel) bool {
	return models.LyricType(fl.Field().String()).Valid()
}
