package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// GoogleSignInMessage carries the verified email of a Google profile
type GoogleSignInMessage struct {
	Email      string
	Name       string
	OnResponse func(*GoogleSignInResponse) `json:"-"`
}

func (e GoogleSignInMessage) Type() string { return "account.social.signin" }

type GoogleSignInResponse struct {
	Account *Account
	Session *SessionObject
}

// GoogleSignInHandler signs existing patients in with a short lived session.
// Unknown emails and staff accounts are rejected so the caller can redirect.
type GoogleSignInHandler struct {
	deps HandlerDeps
}

func NewGoogleSignInHandler(deps HandlerDeps) *GoogleSignInHandler {
	return &GoogleSignInHandler{deps: deps.withDefaults()}
}

func (h *GoogleSignInHandler) Execute(ctx context.Context, event GoogleSignInMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during google sign in",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *GoogleSignInHandler) execute(ctx context.Context, event GoogleSignInMessage) error {
	if strings.TrimSpace(event.Email) == "" {
		return ErrSocialNotRegistered
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	account, err := h.deps.Repo.Accounts().FindByEmail(ctx, event.Email, "")
	if err != nil {
		if IsNotFound(err) {
			return ErrSocialNotRegistered
		}
		return richError(err, "failed to load account for google sign in")
	}

	if account.Role != RolePatient {
		return ErrSocialNotPatient
	}

	session, err := h.deps.Sessions.Issue(account, FlowGoogleLogin)
	if err != nil {
		return richError(err, "failed to issue google session")
	}

	recordActivity(ctx, h.deps.Activity, h.deps.Logger, ActivityEvent{
		EventType:  ActivityEventSocialLogin,
		Actor:      ActorRef{ID: account.ID.String(), Role: account.Role},
		AccountID:  account.ID.String(),
		Metadata:   map[string]any{"provider": "google"},
		OccurredAt: h.deps.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&GoogleSignInResponse{Account: account, Session: session})
	}

	return nil
}
