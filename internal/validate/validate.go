// Package validate holds request validation rules shared across handlers.
package validate

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNotComplex = errors.New("password must include at least one letter and one digit")
)

var (
	letterRegex = regexp.MustCompile(`[a-zA-Z]`)
	digitRegex  = regexp.MustCompile(`\d`)
	mobileRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// Signup checks the fields of a signup request.
func Signup(fullName, email, mobile, password string) error {
	return validation.Errors{
		"full_name": validation.Validate(fullName, validation.Required, validation.Length(2, 100)),
		"email":     validation.Validate(email, validation.Required, is.Email),
		"mobile":    validation.Validate(mobile, validation.Required, validation.Match(mobileRegex).Error("must be a valid mobile number")),
		"password":  validation.Validate(password, validation.Required, validation.By(Password)),
	}.Filter()
}

// NewPassword checks a password used in reset-password and change-password.
func NewPassword(password string) error {
	return validation.Errors{
		"password": validation.Validate(password, validation.Required, validation.By(Password)),
	}.Filter()
}

// Password enforces the minimum password strength: 8+ characters with at
// least one letter and one digit.
func Password(value interface{}) error {
	password, _ := value.(string)

	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !letterRegex.MatchString(password) || !digitRegex.MatchString(password) {
		return ErrPasswordNotComplex
	}
	return nil
}
