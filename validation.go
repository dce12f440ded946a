package accounts

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 100
	MinEmailLength    = 5
	MaxEmailLength    = 256
	MaxUsernameLength = 50
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidatePassword fails with ErrInvalidPasswordLength outside [6,100].
func ValidatePassword(password string) error {
	if err := validation.Validate(password,
		validation.Required,
		validation.RuneLength(MinPasswordLength, MaxPasswordLength),
	); err != nil {
		return ErrInvalidPasswordLength
	}
	return nil
}

// ValidateEmail fails with ErrInvalidEmail for malformed addresses.
func ValidateEmail(email string) error {
	if err := validation.Validate(email,
		validation.Required,
		validation.Length(MinEmailLength, MaxEmailLength),
		validation.Match(emailPattern),
	); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateUsername fails with ErrInvalidUsername for empty or long names.
func ValidateUsername(username string) error {
	if err := validation.Validate(username,
		validation.Required,
		validation.RuneLength(1, MaxUsernameLength),
	); err != nil {
		return ErrInvalidUsername
	}
	return nil
}
