package users

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength     = 50
	minPasswordLength = 6
)

// emailFormat is intentionally RFC-lite: word characters, plus, hyphen and
// dot in the local part; letters, digits, hyphen and dot in the domain; a
// purely alphabetic TLD. Underscores and plus signs in the domain fail.
var emailFormat = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z0-9\-.]+\.[a-z]+$`)

// ValidationErrors aggregates per-field failure reasons for one save
// attempt. The first reason recorded per field wins.
type ValidationErrors map[string]string

// Add records a reason for a field unless one is already present.
func (v ValidationErrors) Add(field, reason string) {
	if _, ok := v[field]; !ok {
		v[field] = reason
	}
}

// Any reports whether any field failed.
func (v ValidationErrors) Any() bool { return len(v) > 0 }

// credentialCheck inspects one aspect of the submitted credentials.
type credentialCheck func(Credentials, ValidationErrors)

// credentialChecks is the explicit, ordered validator chain run on every
// save attempt. Uniqueness is not in the chain: it needs storage access and
// runs in the service, with the database unique index as the final arbiter.
var credentialChecks = []credentialCheck{
	checkName,
	checkEmailFormat,
	checkPassword,
	checkPasswordConfirmation,
}

// ValidateCredentials runs the chain and returns every failed field.
func ValidateCredentials(c Credentials) ValidationErrors {
	errs := make(ValidationErrors)
	for _, check := range credentialChecks {
		check(c, errs)
	}
	return errs
}

func checkName(c Credentials, errs ValidationErrors) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		errs.Add("name", "can't be blank")
		return
	}
	if utf8.RuneCountInString(c.Name) > maxNameLength {
		errs.Add("name", "is too long (maximum is 50 characters)")
	}
}

func checkEmailFormat(c Credentials, errs ValidationErrors) {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		errs.Add("email", "can't be blank")
		return
	}
	if !emailFormat.MatchString(email) {
		errs.Add("email", "is invalid")
	}
}

func checkPassword(c Credentials, errs ValidationErrors) {
	if strings.TrimSpace(c.Password) == "" {
		errs.Add("password", "can't be blank")
		return
	}
	if utf8.RuneCountInString(c.Password) < minPasswordLength {
		errs.Add("password", "is too short (minimum is 6 characters)")
	}
}

func checkPasswordConfirmation(c Credentials, errs ValidationErrors) {
	if strings.TrimSpace(c.PasswordConfirmation) == "" {
		errs.Add("password_confirmation", "can't be blank")
		return
	}
	if c.PasswordConfirmation != c.Password {
		errs.Add("password_confirmation", "doesn't match password")
	}
}
