package hospital_test

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	hospital "github.com/goliatone/go-hospital"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateOTP(t *testing.T) {
	for range 200 {
		code, err := hospital.GenerateOTP()
		require.NoError(t, err)
		require.Regexp(t, otpPattern, code)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateActivationToken(t *testing.T) {
	a, err := hospital.GenerateActivationToken()
	require.NoError(t, err)
	b, err := hospital.GenerateActivationToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, a)
	assert.NotEqual(t, a, b)
}

func TestCodeMatches(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Second)
	justAhead := now.Add(time.Nanosecond)

	tests := []struct {
		name      string
		stored    *string
		expiresAt *time.Time
		submitted string
		expected  bool
	}{
		{"match", ptr("123456"), &future, "123456", true},
		{"trimmed", ptr(" 123456 "), &future, "123456\n", true},
		{"mismatch", ptr("123456"), &future, "654321", false},
		{"expired", ptr("123456"), &past, "123456", false},
		{"expires now", ptr("123456"), &now, "123456", false},
		{"just before expiry", ptr("123456"), &justAhead, "123456", true},
		{"nothing stored", nil, &future, "123456", false},
		{"no expiry", ptr("123456"), nil, "123456", false},
		{"empty submission", ptr("123456"), &future, "  ", false},
		{"empty stored", ptr(""), &future, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hospital.CodeMatches(tt.stored, tt.expiresAt, tt.submitted, now))
		})
	}
}

func TestCodeIssuerDefaultsAndWindows(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	issuer := hospital.NewCodeIssuer(nil, nil, hospital.CodeConfig{}, hospital.WithCodeIssuerClock(func() time.Time { return now }))

	cfg := issuer.Config()
	assert.Equal(t, hospital.DefaultCodeConfig(), cfg)

	verification, err := issuer.NewOTP(hospital.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), verification.ExpiresAt)
	assert.Regexp(t, otpPattern, verification.Value)

	activation, err := issuer.NewOTP(hospital.PurposeActivation)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), activation.ExpiresAt)

	token, err := issuer.NewActivationToken()
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), token.ExpiresAt)
	assert.Len(t, token.Value, 64)
}

func TestCodeIssuerActivationLink(t *testing.T) {
	issuer := hospital.NewCodeIssuer(nil, nil, hospital.CodeConfig{ActivationURL: "https://clinic.example/activate.html"})

	link, err := url.Parse(issuer.ActivationLink("abc", "asha+test@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "clinic.example", link.Host)
	assert.Equal(t, "/activate.html", link.Path)
	assert.Equal(t, "abc", link.Query().Get("token"))
	assert.Equal(t, "asha+test@example.com", link.Query().Get("email"))

	withQuery := hospital.NewCodeIssuer(nil, nil, hospital.CodeConfig{ActivationURL: "https://clinic.example/a?lang=en"})
	assert.Contains(t, withQuery.ActivationLink("abc", "a@example.com"), "?lang=en&")
}

func TestCodeIssuerIssueOTP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, &hospital.Account{FirstName: "Asha", Email: "asha@example.com"}, "")

	env.notifier.On("SendOTP", mock.Anything, "asha@example.com", mock.Anything, 5*time.Minute).Return(nil).Once()

	issued, err := env.issuer.IssueOTP(ctx, account, hospital.PurposeVerification)
	require.NoError(t, err)
	require.NoError(t, issued.DeliveryErr)
	require.NotNil(t, issued.Account.OTP)
	assert.Equal(t, env.notifier.sentCode(t), *issued.Account.OTP)
	assert.Contains(t, env.activity.types(), hospital.ActivityEventCodeIssued)

	env.notifier.AssertExpectations(t)
}

func TestCodeIssuerDeliveryFailureKeepsCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := env.seedAccount(t, &hospital.Account{FirstName: "Asha", Email: "asha@example.com"}, "")

	env.notifier.On("SendOTP", mock.Anything, "asha@example.com", mock.Anything, 10*time.Minute).
		Return(errors.New("smtp: 535 authentication failed"))

	issued, err := env.issuer.IssueOTP(ctx, account, hospital.PurposeActivation)
	require.NoError(t, err)

	err = issued.DeliveryErr
	require.Error(t, err)
	assert.True(t, hospital.HasTextCode(err, hospital.TextCodeDeliveryFailed))
	assert.Equal(t, "smtp: 535 authentication failed", hospital.DeliveryReason(err))

	require.NotNil(t, issued.Account.OTP)

	stored, err := env.repo.Accounts().FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, *issued.Account.OTP, *stored.OTP)
	assert.Equal(t, env.notifier.sentCode(t), *stored.OTP)

	assert.Contains(t, env.activity.types(), hospital.ActivityEventCodeDeliveryFailed)
}

func TestCodeIssuerDeliveryTimeout(t *testing.T) {
	env := newTestEnv(t)
	issuer := hospital.NewCodeIssuer(env.repo.Accounts(), env.notifier, hospital.CodeConfig{
		OTPDeliveryTimeout: 20 * time.Millisecond,
	}, hospital.WithCodeIssuerLogger(nopLogger{}))

	account := env.seedAccount(t, &hospital.Account{FirstName: "Asha", Email: "asha@example.com"}, "")

	env.notifier.On("SendOTP", mock.Anything, "asha@example.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded)

	err := issuer.DeliverOTP(context.Background(), account, "123456", hospital.PurposeVerification)
	require.Error(t, err)
	assert.Contains(t, hospital.DeliveryReason(err), "timed out")
}
