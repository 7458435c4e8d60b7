package hospital_test

import (
	"testing"

	hospital "github.com/goliatone/go-hospital"
	"github.com/stretchr/testify/assert"
)

func TestValidateProfile(t *testing.T) {
	registration := hospital.ProfileRules{RequireFirstName: true, RequirePhone: true}

	tests := []struct {
		name     string
		input    hospital.ProfileInput
		rules    hospital.ProfileRules
		expected error
	}{
		{
			name:  "valid",
			input: hospital.ProfileInput{FirstName: "Asha", Email: "asha@example.com", Phone: "9876543210", Age: ptr(31), Gender: "female"},
			rules: registration,
		},
		{
			name:     "gender is checked first",
			input:    hospital.ProfileInput{Gender: "unknown", Age: ptr(-1)},
			rules:    registration,
			expected: hospital.ErrInvalidGender,
		},
		{
			name:     "age before required fields",
			input:    hospital.ProfileInput{Age: ptr(-1)},
			rules:    registration,
			expected: hospital.ErrNegativeAge,
		},
		{
			name:     "missing first name",
			input:    hospital.ProfileInput{Email: "asha@example.com", Phone: "9876543210"},
			rules:    registration,
			expected: hospital.ErrMissingRequiredFields,
		},
		{
			name:     "missing phone",
			input:    hospital.ProfileInput{FirstName: "Asha", Email: "asha@example.com", Phone: "  "},
			rules:    registration,
			expected: hospital.ErrMissingRequiredFields,
		},
		{
			name:     "bad email",
			input:    hospital.ProfileInput{FirstName: "Asha", Email: "not-an-email", Phone: "9876543210"},
			rules:    registration,
			expected: hospital.ErrInvalidEmail,
		},
		{
			name:  "invite only needs email",
			input: hospital.ProfileInput{Email: "asha@example.com"},
			rules: hospital.ProfileRules{},
		},
		{
			name:     "invite without email",
			input:    hospital.ProfileInput{FirstName: "Asha"},
			rules:    hospital.ProfileRules{},
			expected: hospital.ErrMissingRequiredFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hospital.ValidateProfile(tt.input, tt.rules)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestValidateAgeAndGender(t *testing.T) {
	assert.NoError(t, hospital.ValidateAge(nil))
	assert.NoError(t, hospital.ValidateAge(ptr(0)))
	assert.ErrorIs(t, hospital.ValidateAge(ptr(-3)), hospital.ErrNegativeAge)

	assert.NoError(t, hospital.ValidateGender(""))
	assert.NoError(t, hospital.ValidateGender("other"))
	assert.ErrorIs(t, hospital.ValidateGender("Male"), hospital.ErrInvalidGender)

	assert.Nil(t, hospital.GenderOf(" "))
	assert.Equal(t, hospital.GenderMale, *hospital.GenderOf("male"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "", hospital.NormalizePhone("  ", ""))
	assert.Equal(t, "+919876543210", hospital.NormalizePhone("98765 43210", ""))
	assert.Equal(t, "+919876543210", hospital.NormalizePhone("+91 98765 43210", "IN"))
	assert.Equal(t, "+16502530000", hospital.NormalizePhone("+1 650-253-0000", "IN"))
	assert.Equal(t, "12", hospital.NormalizePhone(" 12 ", "IN"), "invalid numbers are kept as typed")
}
