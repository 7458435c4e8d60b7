package hospital

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidation          = "VALIDATION_FAILED"
	TextCodeMissingFields       = "MISSING_FIELDS"
	TextCodeAccountExists       = "ACCOUNT_EXISTS"
	TextCodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	TextCodeRecordNotFound      = "RECORD_NOT_FOUND"
	TextCodeAlreadyActivated    = "ACCOUNT_ALREADY_ACTIVATED"
	TextCodeNotActivated        = "ACCOUNT_NOT_ACTIVATED"
	TextCodeGoogleLoginRequired = "GOOGLE_LOGIN_REQUIRED"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeInvalidCode         = "INVALID_OR_EXPIRED_CODE"
	TextCodeDeliveryFailed      = "DELIVERY_FAILED"
	TextCodeForbidden           = "FORBIDDEN"
	TextCodeInvalidID           = "INVALID_ID"
	TextCodeNotPatient          = "NOT_A_PATIENT"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeNotRegistered       = "NOT_REGISTERED"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the login failure for a wrong password
var ErrMismatchedHashAndPassword = goerrors.New("Invalid credentials. Please check your password.", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

var (
	ErrInvalidGender = goerrors.New("Invalid gender", goerrors.CategoryValidation).
				WithTextCode(TextCodeValidation).
				WithCode(goerrors.CodeBadRequest)

	ErrNegativeAge = goerrors.New("Age cannot be negative", goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation).
			WithCode(goerrors.CodeBadRequest)

	ErrInvalidEmail = goerrors.New("Invalid email", goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation).
			WithCode(goerrors.CodeBadRequest)

	ErrMissingRequiredFields = goerrors.New("Missing required fields", goerrors.CategoryValidation).
					WithTextCode(TextCodeMissingFields).
					WithCode(goerrors.CodeBadRequest)

	ErrMissingFields = goerrors.New("Missing fields", goerrors.CategoryValidation).
				WithTextCode(TextCodeMissingFields).
				WithCode(goerrors.CodeBadRequest)

	ErrEmailRequired = goerrors.New("Email required", goerrors.CategoryValidation).
				WithTextCode(TextCodeMissingFields).
				WithCode(goerrors.CodeBadRequest)

	ErrRoleRequired = goerrors.New("Role is required", goerrors.CategoryValidation).
			WithTextCode(TextCodeMissingFields).
			WithCode(goerrors.CodeBadRequest)

	ErrPasswordRequired = goerrors.New("Password required", goerrors.CategoryValidation).
				WithTextCode(TextCodeMissingFields).
				WithCode(goerrors.CodeBadRequest)

	ErrMissingVerificationDetails = goerrors.New("Missing verification details", goerrors.CategoryValidation).
					WithTextCode(TextCodeMissingFields).
					WithCode(goerrors.CodeBadRequest)
)

var (
	ErrAccountExists = goerrors.New("User already exists", goerrors.CategoryConflict).
				WithTextCode(TextCodeAccountExists).
				WithCode(goerrors.CodeConflict)

	ErrAccountNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
				WithTextCode(TextCodeAccountNotFound).
				WithCode(goerrors.CodeNotFound)

	// ErrNoPatientRecord is the not-found message shown to patients on activation
	ErrNoPatientRecord = goerrors.New("No patient record found. Please contact clinic.", goerrors.CategoryNotFound).
				WithTextCode(TextCodeAccountNotFound).
				WithCode(goerrors.CodeNotFound)

	// ErrLoginAccountNotFound hints that the role may be wrong
	ErrLoginAccountNotFound = goerrors.New("User not found. Please ensure you are logging in with the correct role.", goerrors.CategoryNotFound).
				WithTextCode(TextCodeAccountNotFound).
				WithCode(goerrors.CodeNotFound)

	ErrPatientNotFound = goerrors.New("Patient not found", goerrors.CategoryNotFound).
				WithTextCode(TextCodeRecordNotFound).
				WithCode(goerrors.CodeNotFound)

	ErrInvalidAccountID = goerrors.New("Invalid User ID format", goerrors.CategoryBadInput).
				WithTextCode(TextCodeInvalidID).
				WithCode(goerrors.CodeBadRequest)

	ErrNotPatientRecord = goerrors.New("Only patient records can be deleted this way", goerrors.CategoryBadInput).
				WithTextCode(TextCodeNotPatient).
				WithCode(goerrors.CodeBadRequest)
)

var (
	// ErrAccountAlreadyInvited is returned when inviting an activated account
	ErrAccountAlreadyInvited = goerrors.New("User already active", goerrors.CategoryConflict).
					WithTextCode(TextCodeAlreadyActivated).
					WithCode(goerrors.CodeConflict)

	ErrActivationNotPending = goerrors.New("Already active", goerrors.CategoryConflict).
				WithTextCode(TextCodeAlreadyActivated).
				WithCode(goerrors.CodeConflict)

	ErrAccountAlreadyActivated = goerrors.New("Account already activated. Please login.", goerrors.CategoryConflict).
					WithTextCode(TextCodeAlreadyActivated).
					WithCode(goerrors.CodeConflict)

	ErrAccountNotActivated = goerrors.New("Account not activated. Please check your email.", goerrors.CategoryAuth).
				WithTextCode(TextCodeNotActivated).
				WithCode(goerrors.CodeUnauthorized)

	ErrGoogleLoginRequired = goerrors.New("Please login using Google. If you want to use a password, please activate your account first.", goerrors.CategoryAuth).
				WithTextCode(TextCodeGoogleLoginRequired).
				WithCode(goerrors.CodeUnauthorized)

	// ErrSocialNotRegistered is returned when a Google profile has no account
	ErrSocialNotRegistered = goerrors.New("No account registered for this Google profile", goerrors.CategoryNotFound).
				WithTextCode(TextCodeNotRegistered).
				WithCode(goerrors.CodeNotFound)

	// ErrSocialNotPatient is returned when Google sign in matches a staff account
	ErrSocialNotPatient = goerrors.New("Google sign in is only available to patients", goerrors.CategoryAuthz).
				WithTextCode(TextCodeNotPatient).
				WithCode(goerrors.CodeForbidden)

	ErrForbidden = goerrors.New("Forbidden", goerrors.CategoryAuthz).
			WithTextCode(TextCodeForbidden).
			WithCode(goerrors.CodeForbidden)
)

var (
	// ErrInvalidOrExpiredOTP covers missing, expired and mismatched verification codes
	ErrInvalidOrExpiredOTP = goerrors.New("Invalid or expired OTP", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCode).
				WithCode(goerrors.CodeBadRequest)

	// ErrInvalidActivation covers missing, expired and mismatched activation tokens or codes
	ErrInvalidActivation = goerrors.New("Invalid or expired activation details. Please try again.", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCode).
				WithCode(goerrors.CodeBadRequest)
)

var (
	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired).
			WithCode(goerrors.CodeUnauthorized)

	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenMalformed).
				WithCode(goerrors.CodeUnauthorized)

	// ErrUnableToDecodeSession unable to decode JWT claims
	ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
					WithTextCode(TextCodeTokenMalformed).
					WithCode(goerrors.CodeUnauthorized)
)

// NewDeliveryError wraps a notifier failure. The stored code stays valid.
func NewDeliveryError(cause error) *goerrors.Error {
	if cause == nil || cause.Error() == "" {
		return goerrors.New("Email error", goerrors.CategoryOperation).
			WithTextCode(TextCodeDeliveryFailed).
			WithCode(goerrors.CodeInternal)
	}
	msg := cause.Error()
	var richErr *goerrors.Error
	if goerrors.As(cause, &richErr) && richErr.Message != "" {
		msg = richErr.Message
	}

	err := goerrors.New(msg, goerrors.CategoryOperation).
		WithTextCode(TextCodeDeliveryFailed).
		WithCode(goerrors.CodeInternal)
	err.Source = cause
	return err
}

// DeliveryReason returns the notifier failure reason carried by err
func DeliveryReason(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeDeliveryFailed {
		return richErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HasTextCode reports whether err carries the given go-errors text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, TextCodeTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, TextCodeTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
