package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifyOTPMessage struct {
	Email      string `json:"email"`
	OTP        string `json:"otp"`
	OnResponse func(*VerifyOTPResponse) `json:"-"`
}

func (e VerifyOTPMessage) Type() string { return "account.otp.verify" }

// Validate only checks presence, the code itself is compared in the handler
func (e VerifyOTPMessage) Validate() error {
	if strings.TrimSpace(e.Email) == "" || strings.TrimSpace(e.OTP) == "" {
		return ErrMissingFields
	}
	return nil
}

type VerifyOTPResponse struct {
	Account *Account
	Session *SessionObject
}

// VerifyOTPHandler consumes a verification code and marks the account verified
type VerifyOTPHandler struct {
	deps HandlerDeps
}

func NewVerifyOTPHandler(deps HandlerDeps) *VerifyOTPHandler {
	return &VerifyOTPHandler{deps: deps.withDefaults()}
}

func (h *VerifyOTPHandler) Execute(ctx context.Context, event VerifyOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during otp verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyOTPHandler) execute(ctx context.Context, event VerifyOTPMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var account *Account
	err := h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		accounts := h.deps.Repo.Accounts()

		current, err := accounts.FindByEmailTx(ctx, tx, event.Email, "")
		if err != nil {
			if IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}

		if !CodeMatches(current.OTP, current.OTPExpiry, event.OTP, h.deps.Now()) {
			return ErrInvalidOrExpiredOTP
		}

		patch := AccountPatch{
			IsVerified: boolPtr(true),
			OTP:        ClearCode(),
		}

		account, err = h.deps.Lifecycle.Transition(ctx, SystemActor, current, ProjectStatus(current, patch),
			func(ctx context.Context, acc *Account) (*Account, error) {
				return accounts.PatchTx(ctx, tx, acc.ID, patch)
			},
			WithTransitionReason("verify-otp"),
		)
		return err
	})

	if err != nil {
		return richError(err, "otp verification transaction failed")
	}

	session, err := h.deps.Sessions.Issue(account, FlowOTPVerified)
	if err != nil {
		return richError(err, "failed to issue session")
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyOTPResponse{Account: account, Session: session})
	}

	return nil
}
