package httpx

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("pub_year", validatePublicationYear)
}

// validatePublicationYear bounds year values to something printable:
// nothing before movable type, nothing past next year.
func validatePublicationYear(fl validator.FieldLevel) bool {
	year := int(fl.Field().Int())
	return year >= 1450 && year <= time.Now().Year()+1
}

// ValidateStruct runs the registered rules and flattens the result
// into field-level details for the error envelope.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var details []ErrorDetail
	for _, fe := range err.(validator.ValidationErrors) {
		details = append(details, ErrorDetail{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return details
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "pub_year":
		return "must be a plausible publication year"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
