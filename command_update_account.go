package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// UpdateAccountMessage is a partial profile update. Email can not be
// changed, IsVerified is only honored for staff.
type UpdateAccountMessage struct {
	Actor      ActorRef `json:"-"`
	ID         string   `json:"-"`
	FirstName  *string  `json:"firstName"`
	LastName   *string  `json:"lastName"`
	Phone      *string  `json:"phone"`
	Age        *int     `json:"age"`
	Gender     *string  `json:"gender"`
	Password   *string  `json:"password"`
	IsVerified *bool    `json:"isVerified"`
	OnResponse func(*UpdateAccountResponse) `json:"-"`
}

func (e UpdateAccountMessage) Type() string { return "account.update" }

type UpdateAccountResponse struct {
	Account *Account
}

type UpdateAccountHandler struct {
	deps HandlerDeps
}

func NewUpdateAccountHandler(deps HandlerDeps) *UpdateAccountHandler {
	return &UpdateAccountHandler{deps: deps.withDefaults()}
}

func (h *UpdateAccountHandler) Execute(ctx context.Context, event UpdateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateAccountHandler) execute(ctx context.Context, event UpdateAccountMessage) error {
	id, err := ParseAccountID(event.ID)
	if err != nil {
		return err
	}

	if !event.Actor.IsStaff() && event.Actor.ID != id.String() {
		return ErrForbidden
	}

	patch, err := h.patchFrom(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var account *Account
	err = h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		accounts := h.deps.Repo.Accounts()

		current, err := accounts.FindByIDTx(ctx, tx, id)
		if err != nil {
			if IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}

		if patch.IsEmpty() {
			account = current
			return nil
		}

		account, err = h.deps.Lifecycle.Transition(ctx, event.Actor, current, ProjectStatus(current, patch),
			func(ctx context.Context, acc *Account) (*Account, error) {
				return accounts.PatchTx(ctx, tx, acc.ID, patch)
			},
			WithTransitionReason("profile-update"),
		)
		return err
	})

	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return richError(err, "account update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&UpdateAccountResponse{Account: account})
	}

	return nil
}

func (h *UpdateAccountHandler) patchFrom(event UpdateAccountMessage) (AccountPatch, error) {
	patch := AccountPatch{
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Age:       event.Age,
	}

	if event.Gender != nil {
		if err := ValidateGender(*event.Gender); err != nil {
			return patch, err
		}
		patch.Gender = GenderOf(*event.Gender)
	}

	if err := ValidateAge(event.Age); err != nil {
		return patch, err
	}

	if event.Phone != nil {
		phone := NormalizePhone(*event.Phone, h.deps.PhoneRegion)
		patch.Phone = &phone
	}

	if event.Password != nil {
		if password := strings.TrimSpace(*event.Password); password != "" {
			patch.Password = &password
		}
	}

	if event.IsVerified != nil && event.Actor.IsStaff() {
		patch.IsVerified = event.IsVerified
	}

	return patch, nil
}
