package hospital

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-command"
)

// commandTimeout bounds the database work of a single command
const commandTimeout = 10 * time.Second

// HandlerDeps are the collaborators shared by the account command handlers
type HandlerDeps struct {
	Repo        RepositoryManager
	Issuer      *CodeIssuer
	Sessions    *SessionIssuer
	Lifecycle   LifecycleMachine
	Notifier    Notifier
	Files       FileStore
	Activity    ActivitySink
	Logger      Logger
	Now         func() time.Time
	PhoneRegion string
	// UseHashid derives account IDs from the email address
	UseHashid bool
}

func (d HandlerDeps) withDefaults() HandlerDeps {
	if d.Repo == nil {
		panic("HOSPITAL: handler dependencies: RepositoryManager is required")
	}
	if d.Logger == nil {
		d.Logger = defLogger{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Lifecycle == nil {
		d.Lifecycle = NewLifecycleMachine(
			WithLifecycleLogger(d.Logger),
			WithLifecycleActivitySink(d.Activity),
			WithLifecycleClock(d.Now),
		)
	}
	if d.Files == nil {
		d.Files = LocalFileStore{}
	}
	if d.PhoneRegion == "" {
		d.PhoneRegion = DefaultPhoneRegion
	}
	d.Activity = normalizeActivitySink(d.Activity)
	return d
}

var (
	_ command.Commander[RegisterAccountMessage]    = (*RegisterAccountHandler)(nil)
	_ command.Commander[InitRegistrationMessage]   = (*InitRegistrationHandler)(nil)
	_ command.Commander[VerifyOTPMessage]          = (*VerifyOTPHandler)(nil)
	_ command.Commander[ResendOTPMessage]          = (*ResendOTPHandler)(nil)
	_ command.Commander[LoginMessage]              = (*LoginHandler)(nil)
	_ command.Commander[InvitePatientMessage]      = (*InvitePatientHandler)(nil)
	_ command.Commander[ResendActivationMessage]   = (*ResendActivationHandler)(nil)
	_ command.Commander[SendActivationOTPMessage]  = (*SendActivationOTPHandler)(nil)
	_ command.Commander[ActivateAccountMessage]    = (*ActivateAccountHandler)(nil)
	_ command.Commander[UpdateAccountMessage]      = (*UpdateAccountHandler)(nil)
	_ command.Commander[DeletePatientMessage]      = (*DeletePatientHandler)(nil)
	_ command.Commander[GoogleSignInMessage]       = (*GoogleSignInHandler)(nil)
)

// richError passes go-errors values through and wraps anything else as internal
func richError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func boolPtr(v bool) *bool {
	return &v
}

func strPtr(v string) *string {
	return &v
}
