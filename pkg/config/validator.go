package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// tokenEncodings lists the tiktoken encodings the memory window can count with.
var tokenEncodings = map[string]struct{}{
	"cl100k_base": {},
	"o200k_base":  {},
	"p50k_base":   {},
	"p50k_edit":   {},
	"r50k_base":   {},
}

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("token_encoding", validateTokenEncoding)
}

// validateTokenEncoding accepts a known encoding name or an empty value,
// which selects the default encoding.
func validateTokenEncoding(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	if name == "" {
		return true
	}
	_, ok := tokenEncodings[name]
	return ok
}
