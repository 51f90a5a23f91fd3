package validation

import (
	"errors"
	"net/mail"
)

// ValidateEmail checks length and RFC 5322 address syntax.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}
	// RFC 5321 caps a forward path at 254 characters
	if len(email) > 254 {
		return errors.New("email address is too long (max 254 characters)")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address format")
	}
	return nil
}
