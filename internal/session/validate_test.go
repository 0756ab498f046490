package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/exchange-web/internal/domain"
)

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		password string
		want     PasswordStrength
	}{
		{"", PasswordStrength{}},
		{"short1!", PasswordStrength{HasLowerCase: true, HasNumbers: true, HasSpecialChar: true}},
		{"alllowercase", PasswordStrength{MinLength: true, HasLowerCase: true}},
		{"Str0ng!pass", PasswordStrength{MinLength: true, HasUpperCase: true, HasLowerCase: true, HasNumbers: true, HasSpecialChar: true}},
	}
	for _, tt := range tests {
		got := CheckPassword(tt.password)
		assert.Equal(t, tt.want, got, tt.password)
	}
	assert.True(t, CheckPassword("Str0ng!pass").Valid())
	assert.False(t, CheckPassword("Str0ngpass").Valid())
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials(domain.Credentials{Email: "a@example.com", Password: "x"}))

	err := ValidateCredentials(domain.Credentials{Email: "nope"})
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestValidateRegistration(t *testing.T) {
	valid := domain.Registration{Name: "Alice", Email: "alice@example.com", Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"}
	assert.NoError(t, ValidateRegistration(valid))

	mismatch := valid
	mismatch.ConfirmPassword = "Str0ng!pasS"
	fields := FieldErrors(ValidateRegistration(mismatch))
	assert.Equal(t, map[string]any{"confirmPassword": "passwords must match"}, fields)

	blank := domain.Registration{}
	fields = FieldErrors(ValidateRegistration(blank))
	assert.Len(t, fields, 4)
}

func TestValidationMessage(t *testing.T) {
	err := ValidateCredentials(domain.Credentials{})
	msg := validationMessage(err, "Login failed")
	assert.Equal(t, "Login failed: email cannot be blank; password cannot be blank", msg)

	assert.Equal(t, "Login failed", validationMessage(assert.AnError, "Login failed"))
	assert.Nil(t, FieldErrors(assert.AnError))
}
