package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// InvitePatientMessage is sent by staff to create or reuse an inactive
// patient and email an activation link
type InvitePatientMessage struct {
	Actor      ActorRef `json:"-"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Age        *int     `json:"age"`
	Gender     string   `json:"gender"`
	OnResponse func(*ActivationIssuedResponse) `json:"-"`
}

func (e InvitePatientMessage) Type() string { return "account.invite" }

// ActivationIssuedResponse reports a stored activation token. DeliveryErr is
// set when the link could not be emailed, the token stays valid.
type ActivationIssuedResponse struct {
	Account     *Account
	Created     bool
	DeliveryErr error
}

type InvitePatientHandler struct {
	deps HandlerDeps
}

func NewInvitePatientHandler(deps HandlerDeps) *InvitePatientHandler {
	return &InvitePatientHandler{deps: deps.withDefaults()}
}

func (h *InvitePatientHandler) Execute(ctx context.Context, event InvitePatientMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during patient invite",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InvitePatientHandler) execute(ctx context.Context, event InvitePatientMessage) error {
	if !event.Actor.IsStaff() {
		return ErrForbidden
	}

	if strings.TrimSpace(event.Email) == "" {
		return ErrEmailRequired
	}

	profile := ProfileInput{
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Email:     event.Email,
		Phone:     event.Phone,
		Age:       event.Age,
		Gender:    event.Gender,
	}

	if err := ValidateProfile(profile, ProfileRules{}); err != nil {
		return err
	}

	token, err := h.deps.Issuer.NewActivationToken()
	if err != nil {
		return richError(err, "failed to generate activation token")
	}

	dbCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	resp := &ActivationIssuedResponse{}
	err = h.deps.Repo.RunInTx(dbCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		accounts := h.deps.Repo.Accounts()

		current, err := accounts.FindByEmailTx(ctx, tx, event.Email, "")
		if err != nil && !IsNotFound(err) {
			return err
		}

		if current != nil {
			if current.IsAccountActivated {
				return ErrAccountAlreadyInvited
			}
			resp.Account, err = storeActivationToken(ctx, tx, h.deps, event.Actor, current, token, "invite")
			return err
		}

		record := profile.account(RolePatient, h.deps.PhoneRegion)
		record.ActivationToken = strPtr(token.Value)
		record.ActivationTokenExpiry = &token.ExpiresAt
		if h.deps.UseHashid {
			if id, err := hashid.NewUUID(record.Email); err == nil {
				record.ID = id
			}
		}

		resp.Account, err = h.deps.Lifecycle.Transition(ctx, event.Actor, &Account{}, StatusPendingActivation,
			func(ctx context.Context, _ *Account) (*Account, error) {
				return accounts.RegisterTx(ctx, tx, record, "")
			},
			WithTransitionReason("invite"),
		)
		resp.Created = err == nil
		return err
	})

	if err != nil {
		return richError(err, "patient invite transaction failed")
	}

	if resp.Created {
		recordActivity(ctx, h.deps.Activity, h.deps.Logger, ActivityEvent{
			EventType:  ActivityEventRegistered,
			Actor:      event.Actor,
			AccountID:  resp.Account.ID.String(),
			ToStatus:   StatusPendingActivation,
			Metadata:   map[string]any{"flow": "invite"},
			OccurredAt: h.deps.Now(),
		})
	}

	resp.DeliveryErr = h.deps.Issuer.DeliverActivationToken(ctx, resp.Account, token.Value)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// storeActivationToken writes token on an existing account through the
// lifecycle machine
func storeActivationToken(ctx context.Context, tx bun.IDB, deps HandlerDeps, actor ActorRef, current *Account, token *CodeUpdate, reason string) (*Account, error) {
	patch := AccountPatch{ActivationToken: token}
	return deps.Lifecycle.Transition(ctx, actor, current, ProjectStatus(current, patch),
		func(ctx context.Context, acc *Account) (*Account, error) {
			return deps.Repo.Accounts().PatchTx(ctx, tx, acc.ID, patch)
		},
		WithTransitionReason(reason),
	)
}

// ResendActivationMessage is sent by staff to replace the activation token
// of a not yet activated account
type ResendActivationMessage struct {
	Actor      ActorRef `json:"-"`
	Email      string   `json:"email"`
	OnResponse func(*ActivationIssuedResponse) `json:"-"`
}

func (e ResendActivationMessage) Type() string { return "account.activation.resend" }

type ResendActivationHandler struct {
	deps HandlerDeps
}

func NewResendActivationHandler(deps HandlerDeps) *ResendActivationHandler {
	return &ResendActivationHandler{deps: deps.withDefaults()}
}

func (h *ResendActivationHandler) Execute(ctx context.Context, event ResendActivationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during activation resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendActivationHandler) execute(ctx context.Context, event ResendActivationMessage) error {
	if !event.Actor.IsStaff() {
		return ErrForbidden
	}

	if strings.TrimSpace(event.Email) == "" {
		return ErrEmailRequired
	}

	token, err := h.deps.Issuer.NewActivationToken()
	if err != nil {
		return richError(err, "failed to generate activation token")
	}

	dbCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	resp := &ActivationIssuedResponse{}
	err = h.deps.Repo.RunInTx(dbCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := h.deps.Repo.Accounts().FindByEmailTx(ctx, tx, event.Email, "")
		if err != nil {
			if IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}

		if current.IsAccountActivated {
			return ErrActivationNotPending
		}

		resp.Account, err = storeActivationToken(ctx, tx, h.deps, event.Actor, current, token, "resend-activation")
		return err
	})

	if err != nil {
		return richError(err, "activation resend transaction failed")
	}

	resp.DeliveryErr = h.deps.Issuer.DeliverActivationToken(ctx, resp.Account, token.Value)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// SendActivationOTPMessage lets a patient request an activation code by email
type SendActivationOTPMessage struct {
	Email      string `json:"email"`
	OnResponse func(*ResendOTPResponse) `json:"-"`
}

func (e SendActivationOTPMessage) Type() string { return "account.activation.otp" }

type SendActivationOTPHandler struct {
	deps HandlerDeps
}

func NewSendActivationOTPHandler(deps HandlerDeps) *SendActivationOTPHandler {
	return &SendActivationOTPHandler{deps: deps.withDefaults()}
}

func (h *SendActivationOTPHandler) Execute(ctx context.Context, event SendActivationOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during activation otp",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendActivationOTPHandler) execute(ctx context.Context, event SendActivationOTPMessage) error {
	if strings.TrimSpace(event.Email) == "" {
		return ErrEmailRequired
	}

	issued, err := reissueOTP(ctx, h.deps, event.Email, PurposeActivation, ErrNoPatientRecord, func(acc *Account) error {
		if acc.IsAccountActivated {
			return ErrAccountAlreadyActivated
		}
		return nil
	})
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ResendOTPResponse{Account: issued.Account, DeliveryErr: issued.DeliveryErr})
	}

	return nil
}
