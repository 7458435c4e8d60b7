package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// AccountFinder is the lookup the provider needs from the credential store
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string, role Role) (*Account, error)
}

// AccountProvider verifies password credentials against stored accounts
type AccountProvider struct {
	store  AccountFinder
	hasher PasswordHasher
	logger Logger
}

func NewAccountProvider(store AccountFinder) *AccountProvider {
	return &AccountProvider{
		store:  store,
		hasher: BcryptHasher{},
		logger: defLogger{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *AccountProvider) WithHasher(h PasswordHasher) *AccountProvider {
	if h != nil {
		p.hasher = h
	}
	return p
}

// VerifyIdentity looks the account up by email and role and checks the
// password. Google linked accounts without a password and patients that
// were never activated are rejected before the hash is compared.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, email, password string, role Role) (*Account, error) {
	account, err := p.store.FindByEmail(ctx, email, role)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrLoginAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if err := ensureAuthenticatableAccount(account); err != nil {
		return nil, err
	}

	if err := p.hasher.ComparePasswordAndHash(strings.TrimSpace(password), account.PasswordHash); err != nil {
		p.logger.Debug("password mismatch", "account", account.ID.String(), "role", string(role))
		if HasTextCode(err, TextCodeInvalidCredentials) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password")
	}

	return account, nil
}

func ensureAuthenticatableAccount(account *Account) error {
	if account == nil {
		return ErrLoginAccountNotFound
	}

	if account.IsGoogleUser && !account.HasPassword() {
		return ErrGoogleLoginRequired
	}

	if account.Role.RequiresActivation() && !account.IsAccountActivated {
		return ErrAccountNotActivated
	}

	return nil
}
