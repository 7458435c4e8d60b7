package hospital

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"
)

// CodePurpose selects the OTP validity window
type CodePurpose string

const (
	PurposeVerification CodePurpose = "verification"
	PurposeActivation   CodePurpose = "activation"
)

const (
	otpMin             = 100000
	otpSpan            = 900000
	activationTokenLen = 32
)

// CodeConfig holds one-time code windows and delivery timeouts
type CodeConfig struct {
	VerificationOTPTTL        time.Duration
	ActivationOTPTTL          time.Duration
	ActivationTokenTTL        time.Duration
	OTPDeliveryTimeout        time.Duration
	ActivationDeliveryTimeout time.Duration
	// ActivationURL is the frontend page that accepts token and email
	ActivationURL string
}

// DefaultCodeConfig returns the production windows
func DefaultCodeConfig() CodeConfig {
	return CodeConfig{
		VerificationOTPTTL:        5 * time.Minute,
		ActivationOTPTTL:          10 * time.Minute,
		ActivationTokenTTL:        24 * time.Hour,
		OTPDeliveryTimeout:        25 * time.Second,
		ActivationDeliveryTimeout: 10 * time.Second,
		ActivationURL:             "http://127.0.0.1:5501/activate.html",
	}
}

func (c CodeConfig) otpTTL(purpose CodePurpose) time.Duration {
	if purpose == PurposeActivation {
		return c.ActivationOTPTTL
	}
	return c.VerificationOTPTTL
}

// CodeIssuer generates one-time codes and activation tokens, stores them on
// the account and hands them to the Notifier.
type CodeIssuer struct {
	accounts Accounts
	notifier Notifier
	config   CodeConfig
	now      func() time.Time
	logger   Logger
	sink     ActivitySink
}

type CodeIssuerOption func(*CodeIssuer)

func WithCodeIssuerClock(now func() time.Time) CodeIssuerOption {
	return func(i *CodeIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

func WithCodeIssuerLogger(logger Logger) CodeIssuerOption {
	return func(i *CodeIssuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

func WithCodeIssuerActivitySink(sink ActivitySink) CodeIssuerOption {
	return func(i *CodeIssuer) {
		i.sink = normalizeActivitySink(sink)
	}
}

func NewCodeIssuer(accounts Accounts, notifier Notifier, config CodeConfig, opts ...CodeIssuerOption) *CodeIssuer {
	defaults := DefaultCodeConfig()
	if config.VerificationOTPTTL <= 0 {
		config.VerificationOTPTTL = defaults.VerificationOTPTTL
	}
	if config.ActivationOTPTTL <= 0 {
		config.ActivationOTPTTL = defaults.ActivationOTPTTL
	}
	if config.ActivationTokenTTL <= 0 {
		config.ActivationTokenTTL = defaults.ActivationTokenTTL
	}
	if config.OTPDeliveryTimeout <= 0 {
		config.OTPDeliveryTimeout = defaults.OTPDeliveryTimeout
	}
	if config.ActivationDeliveryTimeout <= 0 {
		config.ActivationDeliveryTimeout = defaults.ActivationDeliveryTimeout
	}
	if config.ActivationURL == "" {
		config.ActivationURL = defaults.ActivationURL
	}

	i := &CodeIssuer{
		accounts: accounts,
		notifier: notifier,
		config:   config,
		now:      time.Now,
		logger:   defLogger{},
		sink:     noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}

	return i
}

// Config returns the effective code configuration
func (i *CodeIssuer) Config() CodeConfig {
	return i.config
}

// NewOTP returns a fresh 6-digit code with its expiry for purpose
func (i *CodeIssuer) NewOTP(purpose CodePurpose) (*CodeUpdate, error) {
	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	return SetCode(code, i.now().Add(i.config.otpTTL(purpose))), nil
}

// NewActivationToken returns a fresh 256-bit hex token with its expiry
func (i *CodeIssuer) NewActivationToken() (*CodeUpdate, error) {
	token, err := GenerateActivationToken()
	if err != nil {
		return nil, err
	}
	return SetCode(token, i.now().Add(i.config.ActivationTokenTTL)), nil
}

// IssuedCode is the account carrying a freshly stored code. DeliveryErr is
// set when the notifier failed; the stored code stays valid.
type IssuedCode struct {
	Account     *Account
	DeliveryErr error
}

// IssueOTP stores a new code on account and delivers it
func (i *CodeIssuer) IssueOTP(ctx context.Context, account *Account, purpose CodePurpose) (*IssuedCode, error) {
	code, err := i.NewOTP(purpose)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	updated, err := i.accounts.Patch(storeCtx, account.ID, AccountPatch{OTP: code})
	if err != nil {
		return nil, err
	}

	return &IssuedCode{
		Account:     updated,
		DeliveryErr: i.DeliverOTP(ctx, updated, code.Value, purpose),
	}, nil
}

// DeliverOTP sends an already stored code
func (i *CodeIssuer) DeliverOTP(ctx context.Context, account *Account, code string, purpose CodePurpose) error {
	ctx, cancel := context.WithTimeout(ctx, i.config.OTPDeliveryTimeout)
	defer cancel()

	err := i.notifier.SendOTP(ctx, account.Email, code, i.config.otpTTL(purpose))
	return i.delivered(ctx, account, string(purpose)+"_otp", err)
}

// DeliverActivationToken sends the activation link for an already stored token
func (i *CodeIssuer) DeliverActivationToken(ctx context.Context, account *Account, token string) error {
	ctx, cancel := context.WithTimeout(ctx, i.config.ActivationDeliveryTimeout)
	defer cancel()

	link := i.ActivationLink(token, account.Email)
	err := i.notifier.SendActivationLink(ctx, account.Email, link, i.config.ActivationTokenTTL)
	return i.delivered(ctx, account, "activation_token", err)
}

// ActivationLink builds the frontend URL carrying token and email
func (i *CodeIssuer) ActivationLink(token, email string) string {
	params := url.Values{}
	params.Set("token", token)
	params.Set("email", email)

	sep := "?"
	if strings.Contains(i.config.ActivationURL, "?") {
		sep = "&"
	}
	return i.config.ActivationURL + sep + params.Encode()
}

func (i *CodeIssuer) delivered(ctx context.Context, account *Account, kind string, err error) error {
	event := ActivityEvent{
		EventType:  ActivityEventCodeIssued,
		Actor:      SystemActor,
		AccountID:  account.ID.String(),
		Metadata:   map[string]any{"kind": kind},
		OccurredAt: i.now(),
	}

	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("email sending timed out: %w", err)
		}
		i.logger.Error("code delivery failed", "kind", kind, "email", account.Email, "error", err)
		event.EventType = ActivityEventCodeDeliveryFailed
		event.Metadata["error"] = err.Error()
		recordActivity(context.WithoutCancel(ctx), i.sink, i.logger, event)
		return NewDeliveryError(err)
	}

	recordActivity(ctx, i.sink, i.logger, event)
	return nil
}

// GenerateOTP returns a uniformly random code in [100000, 999999]
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// GenerateActivationToken returns 32 random bytes hex encoded
func GenerateActivationToken() (string, error) {
	b := make([]byte, activationTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CodeMatches reports whether submitted equals stored and stored has not expired.
// Both sides are trimmed before comparison.
func CodeMatches(stored *string, expiresAt *time.Time, submitted string, now time.Time) bool {
	if stored == nil || expiresAt == nil {
		return false
	}

	want := strings.TrimSpace(*stored)
	got := strings.TrimSpace(submitted)
	if want == "" || got == "" {
		return false
	}

	if !now.Before(*expiresAt) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
