package hospital

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type LoginMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	OnResponse func(*LoginResponse) `json:"-"`
}

func (e LoginMessage) Type() string { return "account.login" }

type LoginResponse struct {
	Account *Account
	Session *SessionObject
}

// LoginHandler authenticates email, role and password. The role is part of
// the lookup key, a wrong role reads as an unknown account.
type LoginHandler struct {
	deps     HandlerDeps
	provider *AccountProvider
}

func NewLoginHandler(deps HandlerDeps) *LoginHandler {
	deps = deps.withDefaults()
	return &LoginHandler{
		deps:     deps,
		provider: NewAccountProvider(deps.Repo.Accounts()).WithLogger(deps.Logger),
	}
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	role := Role(strings.TrimSpace(event.Role))
	if role == "" {
		return ErrRoleRequired
	}

	if strings.TrimSpace(event.Email) == "" {
		return ErrEmailRequired
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	account, err := h.provider.VerifyIdentity(ctx, event.Email, event.Password, role)
	if err != nil {
		recordActivity(ctx, h.deps.Activity, h.deps.Logger, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			Actor:      ActorRef{Role: role},
			Metadata:   map[string]any{"email": NormalizeEmail(event.Email), "error": err.Error()},
			OccurredAt: h.deps.Now(),
		})
		return richError(err, "login failed")
	}

	session, err := h.deps.Sessions.Issue(account, FlowPasswordLogin)
	if err != nil {
		return richError(err, "failed to issue session")
	}

	recordActivity(ctx, h.deps.Activity, h.deps.Logger, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		Actor:      ActorRef{ID: account.ID.String(), Role: account.Role},
		AccountID:  account.ID.String(),
		OccurredAt: h.deps.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&LoginResponse{Account: account, Session: session})
	}

	return nil
}
