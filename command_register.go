package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterAccountMessage creates a patient. Without a password the account
// is Google linked and a session is returned right away.
type RegisterAccountMessage struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Age        *int   `json:"age"`
	Gender     string `json:"gender"`
	OnResponse func(*RegisterAccountResponse) `json:"-"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Account *Account
	// Session is only set for Google linked registrations
	Session *SessionObject
}

type RegisterAccountHandler struct {
	deps HandlerDeps
}

func NewRegisterAccountHandler(deps HandlerDeps) *RegisterAccountHandler {
	return &RegisterAccountHandler{deps: deps.withDefaults()}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	profile := ProfileInput{
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Email:     event.Email,
		Phone:     event.Phone,
		Age:       event.Age,
		Gender:    event.Gender,
	}

	if err := ValidateProfile(profile, ProfileRules{RequireFirstName: true}); err != nil {
		return err
	}

	password := strings.TrimSpace(event.Password)
	record := profile.account(RolePatient, h.deps.PhoneRegion)
	record.IsGoogleUser = password == ""
	record.IsVerified = record.IsGoogleUser

	target := StatusPendingVerification
	if record.IsGoogleUser {
		target = StatusVerified
	}

	account, err := createAccount(ctx, h.deps, record, password, target, "register")
	if err != nil {
		return err
	}

	resp := &RegisterAccountResponse{Account: account}

	if account.IsGoogleUser {
		session, err := h.deps.Sessions.Issue(account, FlowGoogleRegister)
		if err != nil {
			return richError(err, "failed to issue registration session")
		}
		resp.Session = session
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// InitRegistrationMessage creates a patient holding a verification OTP and
// sends the code
type InitRegistrationMessage struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Age        *int   `json:"age"`
	Gender     string `json:"gender"`
	OnResponse func(*InitRegistrationResponse) `json:"-"`
}

func (e InitRegistrationMessage) Type() string { return "account.register.init" }

type InitRegistrationResponse struct {
	Account *Account
	// DeliveryErr is set when the account was stored but the OTP email failed
	DeliveryErr error
}

type InitRegistrationHandler struct {
	deps HandlerDeps
}

func NewInitRegistrationHandler(deps HandlerDeps) *InitRegistrationHandler {
	return &InitRegistrationHandler{deps: deps.withDefaults()}
}

func (h *InitRegistrationHandler) Execute(ctx context.Context, event InitRegistrationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration init",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitRegistrationHandler) execute(ctx context.Context, event InitRegistrationMessage) error {
	profile := ProfileInput{
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Email:     event.Email,
		Phone:     event.Phone,
		Age:       event.Age,
		Gender:    event.Gender,
	}

	if err := ValidateProfile(profile, ProfileRules{RequireFirstName: true, RequirePhone: true}); err != nil {
		return err
	}

	code, err := h.deps.Issuer.NewOTP(PurposeVerification)
	if err != nil {
		return richError(err, "failed to generate verification code")
	}

	password := strings.TrimSpace(event.Password)
	record := profile.account(RolePatient, h.deps.PhoneRegion)
	record.IsGoogleUser = password == ""
	record.OTP = strPtr(code.Value)
	record.OTPExpiry = &code.ExpiresAt

	account, err := createAccount(ctx, h.deps, record, password, StatusPendingVerification, "register-init")
	if err != nil {
		return err
	}

	resp := &InitRegistrationResponse{Account: account}
	resp.DeliveryErr = h.deps.Issuer.DeliverOTP(ctx, account, code.Value, PurposeVerification)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// createAccount stores record when no account holds its email yet
func createAccount(ctx context.Context, deps HandlerDeps, record *Account, password string, target AccountStatus, reason string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if deps.UseHashid && record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		}
	}

	var account *Account
	err := deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		accounts := deps.Repo.Accounts()

		if _, err := accounts.FindByEmailTx(ctx, tx, record.Email, ""); err == nil {
			return ErrAccountExists
		} else if !IsNotFound(err) {
			return err
		}

		created, err := deps.Lifecycle.Transition(ctx, SystemActor, &Account{}, target,
			func(ctx context.Context, _ *Account) (*Account, error) {
				return accounts.RegisterTx(ctx, tx, record, password)
			},
			WithTransitionReason(reason),
		)
		if err != nil {
			return err
		}

		account = created
		return nil
	})

	if err != nil {
		return nil, richError(err, "account registration transaction failed")
	}

	recordActivity(ctx, deps.Activity, deps.Logger, ActivityEvent{
		EventType:  ActivityEventRegistered,
		Actor:      SystemActor,
		AccountID:  account.ID.String(),
		ToStatus:   target,
		Metadata:   map[string]any{"flow": reason, "google": account.IsGoogleUser},
		OccurredAt: deps.Now(),
	})

	return account, nil
}
