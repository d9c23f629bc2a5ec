// Package validator wraps go-playground/validator with a shared instance,
// the project's custom tags, and a uniform error format.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the first error in the chain returned by Validate
// when any field rule is violated.
var ErrValidationFailed = errors.New("struct validation failed")

var validator *gvalidator.Validate

// "'Address': value '' does not meet the requirements for the 'required' validation"
const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())

	// Registration only fails on an empty tag or nil func.
	_ = validator.RegisterValidation("walletaddr", isWalletAddress)
}

// isWalletAddress accepts any single token that cannot break the
// "<chain>:<address>" line format used by the wallet store.
func isWalletAddress(fl gvalidator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || strings.Contains(s, ":") {
		return false
	}

	return strings.IndexFunc(s, unicode.IsSpace) < 0
}

func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		errs = append(errs, fmt.Errorf(errStringFormat,
			validationErr.Field(),
			validationErr.Value(),
			validationErr.Tag(),
		))
	}

	return errors.Join(errs...)
}

// Validate checks v against its `validate` struct tags. Besides the
// built-in rules, the "walletaddr" tag is available.
//
//	if err := validator.Validate(input); errors.Is(err, validator.ErrValidationFailed) {
//	    // reject input
//	}
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}
