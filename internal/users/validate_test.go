package users

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCredentials() Credentials {
	return Credentials{
		Name:                 "Example User",
		Email:                "user@example.com",
		Password:             "foobar",
		PasswordConfirmation: "foobar",
	}
}

func TestValidateCredentialsAccepted(t *testing.T) {
	errs := ValidateCredentials(validCredentials())
	assert.False(t, errs.Any(), "expected no validation errors, got %v", errs)
}

func TestValidateCredentialsName(t *testing.T) {
	c := validCredentials()
	c.Name = "   "
	errs := ValidateCredentials(c)
	assert.Equal(t, "can't be blank", errs["name"])

	c = validCredentials()
	c.Name = strings.Repeat("a", 51)
	errs = ValidateCredentials(c)
	assert.Equal(t, "is too long (maximum is 50 characters)", errs["name"])

	c = validCredentials()
	c.Name = strings.Repeat("a", 50)
	errs = ValidateCredentials(c)
	assert.Empty(t, errs["name"])
}

func TestValidateCredentialsEmailFormat(t *testing.T) {
	invalid := []string{
		"user@foo,com",
		"user_at_foo.org",
		"example.user@foo.",
		"foo@bar_baz.com",
		"foo@bar+baz.com",
	}
	for _, email := range invalid {
		c := validCredentials()
		c.Email = email
		errs := ValidateCredentials(c)
		assert.Equal(t, "is invalid", errs["email"], "email %q should be rejected", email)
	}

	valid := []string{
		"user@foo.COM",
		"A_US-ER@f.b.org",
		"frst.lst@foo.jp",
		"a+b@baz.cn",
	}
	for _, email := range valid {
		c := validCredentials()
		c.Email = email
		errs := ValidateCredentials(c)
		assert.Empty(t, errs["email"], "email %q should be accepted", email)
	}

	c := validCredentials()
	c.Email = ""
	errs := ValidateCredentials(c)
	assert.Equal(t, "can't be blank", errs["email"])
}

func TestValidateCredentialsPassword(t *testing.T) {
	c := validCredentials()
	c.Password = ""
	c.PasswordConfirmation = ""
	errs := ValidateCredentials(c)
	assert.Equal(t, "can't be blank", errs["password"])
	assert.Equal(t, "can't be blank", errs["password_confirmation"])

	c = validCredentials()
	c.Password = "short"
	c.PasswordConfirmation = "short"
	errs = ValidateCredentials(c)
	assert.Equal(t, "is too short (minimum is 6 characters)", errs["password"])

	c = validCredentials()
	c.PasswordConfirmation = "mismatch"
	errs = ValidateCredentials(c)
	assert.Equal(t, "doesn't match password", errs["password_confirmation"])
}

func TestValidationErrorsFirstReasonWins(t *testing.T) {
	errs := make(ValidationErrors)
	errs.Add("email", "is invalid")
	errs.Add("email", "has already been taken")
	assert.Equal(t, "is invalid", errs["email"])
}
