package hospital

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SessionFlow names the flow a session is issued for. Each flow has a TTL.
type SessionFlow string

const (
	FlowPasswordLogin  SessionFlow = "password_login"
	FlowOTPVerified    SessionFlow = "otp_verified"
	FlowGoogleRegister SessionFlow = "google_register"
	FlowGoogleLogin    SessionFlow = "google_login"
)

// SessionTTLs holds the lifetimes per flow family
type SessionTTLs struct {
	Default time.Duration
	Google  time.Duration
}

// SessionObject is an issued session credential
type SessionObject struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Flow      SessionFlow
	Account   *Account `json:"-"`
}

// SessionIssuer mints session credentials for accounts
type SessionIssuer struct {
	tokens TokenService
	ttls   SessionTTLs
}

func NewSessionIssuer(tokens TokenService, ttls SessionTTLs) *SessionIssuer {
	if ttls.Default <= 0 {
		ttls.Default = DefaultSessionTTL
	}
	if ttls.Google <= 0 {
		ttls.Google = DefaultGoogleSessionTTL
	}
	return &SessionIssuer{tokens: tokens, ttls: ttls}
}

// TTL returns the lifetime used for flow
func (s *SessionIssuer) TTL(flow SessionFlow) time.Duration {
	if flow == FlowGoogleLogin {
		return s.ttls.Google
	}
	return s.ttls.Default
}

// Issue signs a session for account
func (s *SessionIssuer) Issue(account *Account, flow SessionFlow) (*SessionObject, error) {
	if account == nil {
		return nil, goerrors.New("account is required", goerrors.CategoryBadInput)
	}

	token, expiresAt, err := s.tokens.Issue(NewIdentityFromAccount(account), s.TTL(flow))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session")
	}

	return &SessionObject{
		Token:     token,
		ExpiresAt: expiresAt,
		Flow:      flow,
		Account:   account,
	}, nil
}

// Validate checks a session credential
func (s *SessionIssuer) Validate(token string) (AuthClaims, error) {
	return s.tokens.Validate(token)
}
