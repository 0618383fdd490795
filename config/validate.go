package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"node.town/attacca/action"
	"node.town/attacca/emotion"
)

// NewValidator returns a validator that also knows the genre, platform
// and label tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return action.ValidGenre(fl.Field().String())
	})
	v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		_, err := action.ParsePlatform(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("label", func(fl validator.FieldLevel) bool {
		_, ok := emotion.ParseLabel(fl.Field().String())
		return ok
	})
	return v
}

// FormatValidationErrors turns validator errors into one line per field.
func FormatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	var out []string
	for _, e := range verrs {
		element := fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Namespace(), e.Tag())
		if e.Param() != "" {
			element = fmt.Sprintf("%s (value: %s)", element, e.Param())
		}
		out = append(out, element)
	}
	return out
}
