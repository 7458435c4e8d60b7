package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ResendOTPMessage replaces the verification code of an account. There is
// no throttling, the last issued code is the only valid one.
type ResendOTPMessage struct {
	Email      string `json:"email"`
	OnResponse func(*ResendOTPResponse) `json:"-"`
}

func (e ResendOTPMessage) Type() string { return "account.otp.resend" }

type ResendOTPResponse struct {
	Account     *Account
	DeliveryErr error
}

type ResendOTPHandler struct {
	deps HandlerDeps
}

func NewResendOTPHandler(deps HandlerDeps) *ResendOTPHandler {
	return &ResendOTPHandler{deps: deps.withDefaults()}
}

func (h *ResendOTPHandler) Execute(ctx context.Context, event ResendOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during otp resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendOTPHandler) execute(ctx context.Context, event ResendOTPMessage) error {
	if strings.TrimSpace(event.Email) == "" {
		return ErrEmailRequired
	}

	issued, err := reissueOTP(ctx, h.deps, event.Email, PurposeVerification, ErrAccountNotFound, nil)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ResendOTPResponse{Account: issued.Account, DeliveryErr: issued.DeliveryErr})
	}

	return nil
}

// reissueOTP replaces the code of the account behind email through the issuer
func reissueOTP(ctx context.Context, deps HandlerDeps, email string, purpose CodePurpose, notFound error, guard func(*Account) error) (*IssuedCode, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	current, err := deps.Repo.Accounts().FindByEmail(lookupCtx, email, "")
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound
		}
		return nil, richError(err, "failed to load account")
	}

	if guard != nil {
		if err := guard(current); err != nil {
			return nil, err
		}
	}

	issued, err := deps.Issuer.IssueOTP(ctx, current, purpose)
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound
		}
		return nil, richError(err, "failed to store code")
	}
	return issued, nil
}
