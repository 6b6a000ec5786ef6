package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	tagFormBool = "formbool"

	msgInvalidBoolean = "Enter a valid boolean."
	msgInvalidEmail   = "Enter a valid email address."
	msgRequired       = "This field is required."
	msgTooLong        = "Ensure this value is not too long."
	msgInvalidValue   = "Enter a valid value."
)

// NewValidator returns a validator that knows the formbool tag and reports fields by
// their form or json name.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	// Registration only fails for an empty tag name.
	_ = validate.RegisterValidation(tagFormBool, func(fl validator.FieldLevel) bool {
		_, ok := ParseFormBool(fl.Field().String())
		return ok
	})
	return validate
}

// ParseFormBool coerces a submitted checkbox value. An empty or absent value is false.
// The second result is false when the value is not a recognised boolean.
func ParseFormBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes", "y", "t":
		return true, true
	case "", "off", "false", "0", "no", "n", "f":
		return false, true
	}
	return false, false
}

// fieldErrors turns validator failures into one message per field. Any other error is
// returned unchanged.
func fieldErrors(err error) (map[string]string, error) {
	if err == nil {
		return nil, nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil, err
	}
	result := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		if _, exists := result[fe.Field()]; exists {
			continue
		}
		result[fe.Field()] = fieldMessage(fe.Tag())
	}
	return result, nil
}

func fieldMessage(tag string) string {
	switch tag {
	case tagFormBool:
		return msgInvalidBoolean
	case "email":
		return msgInvalidEmail
	case "required":
		return msgRequired
	case "max":
		return msgTooLong
	default:
		return msgInvalidValue
	}
}
