package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateProfile checks that a profile document carries every field the
// session layer hard-requires. A document failing validation is treated the
// same as a missing one.
func ValidateProfile(p *Profile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}

// ValidateTenant checks a tenant record at the store boundary.
func ValidateTenant(t *TenantRecord) error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}
