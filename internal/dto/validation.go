package dto

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/connexa-app/connexa-api/internal/models"
)

// NewValidator builds the request validator with the custom tags used by the DTOs.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	_ = validate.RegisterValidation("avatar", func(fl validator.FieldLevel) bool {
		return models.IsValidAvatar(fl.Field().String())
	})
	return validate
}

// IsStrongPassword requires at least 8 characters mixing lower case, upper case and digits.
func IsStrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}
