package hospital

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers without a country prefix
const DefaultPhoneRegion = "IN"

// ProfileInput holds the self-service profile fields shared by the
// registration and invite payloads
type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Age       *int
	Gender    string
}

// ProfileRules selects the required fields for a flow
type ProfileRules struct {
	RequireFirstName bool
	RequirePhone     bool
}

// ValidateProfile checks gender, then age, then required fields, then the
// email format. The first failing rule wins.
func ValidateProfile(p ProfileInput, rules ProfileRules) error {
	if err := ValidateGender(p.Gender); err != nil {
		return err
	}

	if err := ValidateAge(p.Age); err != nil {
		return err
	}

	required := []string{p.Email}
	if rules.RequireFirstName {
		required = append(required, p.FirstName)
	}
	if rules.RequirePhone {
		required = append(required, p.Phone)
	}
	for _, value := range required {
		if err := validation.Validate(strings.TrimSpace(value), validation.Required); err != nil {
			return ErrMissingRequiredFields
		}
	}

	if err := validation.Validate(strings.TrimSpace(p.Email), is.Email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateGender accepts an empty value or one of Genders
func ValidateGender(raw string) error {
	if err := validation.Validate(strings.TrimSpace(raw), validation.In(Genders...)); err != nil {
		return ErrInvalidGender
	}
	return nil
}

// ValidateAge accepts an absent or non negative age
func ValidateAge(age *int) error {
	if age == nil {
		return nil
	}
	if err := validation.Validate(*age, validation.Min(0)); err != nil {
		return ErrNegativeAge
	}
	return nil
}

// GenderOf returns the stored gender for a validated input, nil when absent
func GenderOf(raw string) *Gender {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	g := Gender(raw)
	return &g
}

// NormalizePhone formats valid numbers as E.164 and otherwise keeps the
// trimmed input
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}

func (p ProfileInput) account(role Role, region string) *Account {
	record := &Account{
		Role:      role,
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Email:     NormalizeEmail(p.Email),
		Phone:     NormalizePhone(p.Phone, region),
		Age:       p.Age,
	}
	if g := GenderOf(p.Gender); g != nil {
		record.Gender = *g
	}
	return record
}
