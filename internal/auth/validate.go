package auth

import (
	"regexp"
	"strings"
)

// Form field keys used in InvalidInput errors.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

// MinPasswordLength applies to registration only; login accepts whatever
// the account was created with.
const MinPasswordLength = 8

// emailRe accepts local@domain.tld with no whitespace, exactly one @ and a
// domain of non-empty labels separated by single dots.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)

// ValidateLogin checks the login form. It returns nil or an *Error of
// KindInvalidInput listing every failing field.
func ValidateLogin(email, password string) error {
	fields := map[string]string{}
	checkEmail(fields, email)
	if password == "" {
		fields[FieldPassword] = "Password is required."
	}
	return invalid(fields)
}

// ValidateRegistration checks the registration form.
func ValidateRegistration(name, email, password, confirmPassword string) error {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields[FieldName] = "Name is required."
	}
	checkEmail(fields, email)
	switch {
	case password == "":
		fields[FieldPassword] = "Password is required."
	case len([]rune(password)) < MinPasswordLength:
		fields[FieldPassword] = "Password must be at least 8 characters."
	}
	if password != confirmPassword {
		fields[FieldConfirmPassword] = "Passwords do not match."
	}
	return invalid(fields)
}

func checkEmail(fields map[string]string, email string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		fields[FieldEmail] = "Email is required."
	case !emailRe.MatchString(email):
		fields[FieldEmail] = "Enter a valid email address."
	}
}

func invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Kind: KindInvalidInput, Fields: fields}
}
