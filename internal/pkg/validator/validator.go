package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Payout methods accepted for cashouts
var CashoutMethods = []string{"upi", "bank_transfer", "wallet"}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("cashout_method", func(fl validator.FieldLevel) bool {
		method := fl.Field().String()
		for _, m := range CashoutMethods {
			if method == m {
				return true
			}
		}
		return false
	})

	// Rejects reasons made only of whitespace
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"_": err.Error()}
	}

	result := make(map[string]string)
	for _, fe := range validationErrors {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "notblank":
			result[field] = "This field is required"
		case "min":
			result[field] = "Value is too short (min: " + fe.Param() + ")"
		case "max":
			result[field] = "Value is too long (max: " + fe.Param() + ")"
		case "gt":
			result[field] = "Value must be greater than " + fe.Param()
		case "gte":
			result[field] = "Value must be at least " + fe.Param()
		case "lte":
			result[field] = "Value must be at most " + fe.Param()
		case "latitude":
			result[field] = "Latitude must be between -90 and 90"
		case "longitude":
			result[field] = "Longitude must be between -180 and 180"
		case "oneof":
			result[field] = "Must be one of: " + fe.Param()
		case "cashout_method":
			result[field] = "Invalid method. Must be: " + strings.Join(CashoutMethods, ", ")
		default:
			result[field] = "Invalid value"
		}
	}

	return result
}
