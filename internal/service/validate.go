package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/linkshelf/internal/apperror"
)

var rgbColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})

	// The built-in hexcolor also accepts #RGB and #RRGGBBAA.
	if err := v.RegisterValidation("rgbcolor", func(fl validator.FieldLevel) bool {
		return rgbColor.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validateStruct runs the struct's validate tags and turns the first
// failure into an apperror.ValidationFailed with a message fit for display.
// except names struct fields to skip.
func validateStruct(in any, except ...string) error {
	var err error
	if len(except) > 0 {
		err = validate.StructExcept(in, except...)
	} else {
		err = validate.Struct(in)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", "invalid input")
	}

	first := verrs[0]
	field := first.Field()
	switch first.Tag() {
	case "required":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s is required", field))
	case "max":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %s characters or less", field, first.Param()))
	case "rgbcolor":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be a hex color like #1A2B3C", field))
	case "uuid4":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s is not a valid id", field))
	case "http_url":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be an absolute http or https URL", field))
	default:
		return apperror.ValidationFailed(field, fmt.Sprintf("invalid %s", field))
	}
}
