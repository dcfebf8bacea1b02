package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("notblank", validateNotBlank)
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// fieldMessages maps json field names to the message shown for a missing value.
var fieldMessages = map[string]string{
	"code":        "VHDL code is required",
	"scenario":    "Test scenario description is required",
	"description": "Test scenario description is required",
	"model":       "Model selection is required",
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validationMessage returns the message for the first failing field, in
// declaration order.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return "Invalid request body"
	}

	fieldError := validationErrors[0]
	if msg, ok := fieldMessages[fieldError.Field()]; ok {
		return msg
	}
	return fieldError.Field() + " is invalid"
}
