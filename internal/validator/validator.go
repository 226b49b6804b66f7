// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine and
// makes field errors report json names instead of Go field names.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonTagName)
		_ = v.RegisterValidation("strong_password", validateStrongPassword)
		_ = v.RegisterValidation("firm_type", validateFirmType)
		_ = v.RegisterValidation("location_type", validateLocationType)
		_ = v.RegisterValidation("event_mode", validateEventMode)
		_ = v.RegisterValidation("next_step", validateNextStep)
		_ = v.RegisterValidation("recommendation", validateRecommendation)
		_ = v.RegisterValidation("role", validateRole)
	}
}

func jsonTagName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// IsStrongPassword requires at least 8 characters with an upper-case letter,
// a lower-case letter, a digit and a symbol.
func IsStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

func validateFirmType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "broker", "investor":
		return true
	}
	return false
}

func validateLocationType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Domestic", "Foreign":
		return true
	}
	return false
}

func validateEventMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Virtual", "Physical":
		return true
	}
	return false
}

func validateNextStep(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Confirmed", "Cancelled", "Declined", "TBD":
		return true
	}
	return false
}

func validateRecommendation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "Buy", "Accumulate", "Hold", "Reduce", "Sell":
		return true
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "admin", "member":
		return true
	}
	return false
}
