package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ActivateAccountMessage proves an invitation with either the emailed token
// or an activation OTP and sets the first password
type ActivateAccountMessage struct {
	Email      string `json:"email"`
	Token      string `json:"token"`
	OTP        string `json:"otp"`
	Password   string `json:"password"`
	OnResponse func(*ActivateAccountResponse) `json:"-"`
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

func (e ActivateAccountMessage) Validate() error {
	if strings.TrimSpace(e.Token) == "" && strings.TrimSpace(e.OTP) == "" {
		return ErrMissingVerificationDetails
	}
	if strings.TrimSpace(e.Password) == "" {
		return ErrPasswordRequired
	}
	return nil
}

type ActivateAccountResponse struct {
	Account *Account
}

type ActivateAccountHandler struct {
	deps HandlerDeps
}

func NewActivateAccountHandler(deps HandlerDeps) *ActivateAccountHandler {
	return &ActivateAccountHandler{deps: deps.withDefaults()}
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var account *Account
	err := h.deps.Repo.RunInTx(dbCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		accounts := h.deps.Repo.Accounts()

		current, err := accounts.FindByEmailTx(ctx, tx, event.Email, "")
		if err != nil && !IsNotFound(err) {
			return err
		}

		if err := h.checkProof(current, event); err != nil {
			return err
		}

		password := strings.TrimSpace(event.Password)
		patch := AccountPatch{
			Password:        &password,
			IsActivated:     boolPtr(true),
			IsVerified:      boolPtr(true),
			OTP:             ClearCode(),
			ActivationToken: ClearCode(),
		}

		account, err = h.deps.Lifecycle.Transition(ctx, ActorRef{ID: current.ID.String(), Role: current.Role}, current, StatusActivated,
			func(ctx context.Context, acc *Account) (*Account, error) {
				return accounts.PatchTx(ctx, tx, acc.ID, patch)
			},
			WithTransitionReason("activate"),
		)
		return err
	})

	if err != nil {
		return richError(err, "account activation transaction failed")
	}

	h.confirm(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(&ActivateAccountResponse{Account: account})
	}

	return nil
}

// checkProof accepts a token before an OTP. Every token failure reads the
// same, an OTP request for an unknown email reports the missing record.
func (h *ActivateAccountHandler) checkProof(current *Account, event ActivateAccountMessage) error {
	now := h.deps.Now()

	if strings.TrimSpace(event.Token) != "" {
		if current == nil || !CodeMatches(current.ActivationToken, current.ActivationTokenExpiry, event.Token, now) {
			return ErrInvalidActivation
		}
		return nil
	}

	if current == nil {
		return ErrNoPatientRecord
	}

	if !CodeMatches(current.OTP, current.OTPExpiry, event.OTP, now) {
		return ErrInvalidActivation
	}

	return nil
}

func (h *ActivateAccountHandler) confirm(ctx context.Context, account *Account) {
	if h.deps.Notifier == nil {
		return
	}

	timeout := DefaultCodeConfig().ActivationDeliveryTimeout
	if h.deps.Issuer != nil {
		timeout = h.deps.Issuer.Config().ActivationDeliveryTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := h.deps.Notifier.SendActivationConfirmation(ctx, account.Email); err != nil {
		h.deps.Logger.Warn("activation confirmation not delivered", "email", account.Email, "error", err)
	}
}
