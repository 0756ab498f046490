package session

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/exchange-web/internal/domain"
)

const minPasswordLength = 8

var specialChars = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

// PasswordStrength reports which password rules are satisfied.
type PasswordStrength struct {
	MinLength      bool `json:"minLength"`
	HasUpperCase   bool `json:"hasUpperCase"`
	HasLowerCase   bool `json:"hasLowerCase"`
	HasNumbers     bool `json:"hasNumbers"`
	HasSpecialChar bool `json:"hasSpecialChar"`
}

// Valid is true when every rule holds.
func (p PasswordStrength) Valid() bool {
	return p.MinLength && p.HasUpperCase && p.HasLowerCase && p.HasNumbers && p.HasSpecialChar
}

// CheckPassword evaluates password against the strength rules.
func CheckPassword(password string) PasswordStrength {
	strength := PasswordStrength{
		MinLength:      len(password) >= minPasswordLength,
		HasSpecialChar: specialChars.MatchString(password),
	}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			strength.HasUpperCase = true
		case unicode.IsLower(r):
			strength.HasLowerCase = true
		case unicode.IsDigit(r):
			strength.HasNumbers = true
		}
	}
	return strength
}

func strongPassword(value interface{}) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}
	if !CheckPassword(password).Valid() {
		return errors.New("must be at least 8 characters with upper and lower case letters, a number and a special character")
	}
	return nil
}

func equalTo(other string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != other {
			return errors.New("passwords must match")
		}
		return nil
	}
}

// ValidateCredentials checks the login form before it reaches the API.
func ValidateCredentials(c domain.Credentials) error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// ValidateRegistration checks the register form before it reaches the API.
func ValidateRegistration(r domain.Registration) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(strongPassword)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(equalTo(r.Password))),
	)
}

// FieldErrors flattens a validation error into field -> message.
func FieldErrors(err error) map[string]any {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make(map[string]any, len(errs))
	for field, fieldErr := range errs {
		out[field] = fieldErr.Error()
	}
	return out
}

func validationMessage(err error, fallback string) string {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fallback
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+errs[field].Error())
	}
	return fallback + ": " + strings.Join(parts, "; ")
}
