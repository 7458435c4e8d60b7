package hospital

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state derived from the account flags
type AccountStatus string

const (
	StatusUnregistered        AccountStatus = "unregistered"
	StatusPendingVerification AccountStatus = "pending_verification"
	StatusVerified            AccountStatus = "verified"
	StatusPendingActivation   AccountStatus = "pending_activation"
	StatusActivated           AccountStatus = "activated"
)

const textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Role Role
}

// IsStaff reports whether the actor is a doctor or admin
func (a ActorRef) IsStaff() bool {
	return a.Role.IsStaff()
}

// SystemActor is used for self-service and callback flows
var SystemActor = ActorRef{ID: "system"}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor   ActorRef
	Account *Account
	From    AccountStatus
	To      AccountStatus
	Meta    TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionWrite persists the change and returns the stored record.
type TransitionWrite func(ctx context.Context, account *Account) (*Account, error)

// TransitionHookPhase identifies whether a hook ran before or after persistence.
type TransitionHookPhase string

const (
	HookPhaseBefore TransitionHookPhase = "before_transition"
	HookPhaseAfter  TransitionHookPhase = "after_transition"
)

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// LifecycleMachine validates and records account lifecycle changes.
type LifecycleMachine interface {
	Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, write TransitionWrite, opts ...TransitionOption) (*Account, error)
	CurrentStatus(account *Account) AccountStatus
	CanTransition(from, to AccountStatus) bool
}

// HookErrorHandler handles errors surfaced by transition hooks.
type HookErrorHandler func(ctx context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error

// LifecycleOption customizes state machine construction.
type LifecycleOption func(*lifecycleMachine)

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(sm *lifecycleMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithLifecycleActivitySink sets the ActivitySink used to publish lifecycle events.
func WithLifecycleActivitySink(sink ActivitySink) LifecycleOption {
	return func(sm *lifecycleMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithLifecycleHookErrorHandler overrides how hook failures are propagated.
func WithLifecycleHookErrorHandler(handler HookErrorHandler) LifecycleOption {
	return func(sm *lifecycleMachine) {
		if handler != nil {
			sm.hookErrorHandler = handler
		}
	}
}

// WithLifecycleLogger overrides the logger used for sink failures.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(sm *lifecycleMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithBeforeTransitionHook adds a hook executed before the write.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the write succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewLifecycleMachine returns the default account lifecycle.
//
//	unregistered -> pending_verification -> verified -> pending_activation -> activated
//
// Google registrations enter at verified, invitations at pending_activation.
// Every registered state may transition to itself so codes can be reissued.
func NewLifecycleMachine(opts ...LifecycleOption) LifecycleMachine {
	sm := &lifecycleMachine{
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			StatusUnregistered: {
				StatusPendingVerification: {},
				StatusVerified:            {},
				StatusPendingActivation:   {},
			},
			StatusPendingVerification: {
				StatusPendingVerification: {},
				StatusVerified:            {},
				StatusPendingActivation:   {},
				StatusActivated:           {},
			},
			StatusVerified: {
				// staff profile edits may revoke verification
				StatusPendingVerification: {},
				StatusVerified:            {},
				StatusPendingActivation:   {},
				StatusActivated:           {},
			},
			StatusPendingActivation: {
				StatusPendingActivation: {},
				StatusActivated:         {},
			},
			StatusActivated: {
				StatusActivated: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		hookErrorHandler: func(_ context.Context, _ TransitionHookPhase, err error, _ TransitionContext) error {
			return err
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type lifecycleMachine struct {
	transitions      map[AccountStatus]map[AccountStatus]struct{}
	now              func() time.Time
	activitySink     ActivitySink
	logger           Logger
	hookErrorHandler HookErrorHandler
}

type transitionOptions struct {
	metadata    TransitionMetadata
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *lifecycleMachine) Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, write TransitionWrite, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, goerrors.New("account is nil", goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidTransition).
			WithCode(goerrors.CodeBadRequest)
	}

	if target == "" || target == StatusUnregistered {
		return nil, goerrors.New("invalid target status", goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidTransition).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"to": target})
	}

	from := sm.CurrentStatus(account)
	if !sm.CanTransition(from, target) {
		return nil, goerrors.New(ErrInvalidTransition.Message, goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidTransition).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"from": from,
				"to":   target,
			})
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	ctxData := TransitionContext{
		Actor:   actor,
		Account: account,
		From:    from,
		To:      target,
		Meta:    options.cloneMetadata(),
	}

	if err := sm.runHooks(ctx, options.beforeHooks, ctxData, HookPhaseBefore); err != nil {
		return nil, err
	}

	updated := account
	if write != nil {
		stored, err := write(ctx, account)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			updated = stored
		}
	}

	ctxData.Account = updated
	if err := sm.runHooks(ctx, options.afterHooks, ctxData, HookPhaseAfter); err != nil {
		return nil, err
	}

	if from != target {
		sm.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventStatusChanged,
			Actor:      actor,
			AccountID:  updated.ID.String(),
			FromStatus: from,
			ToStatus:   target,
			Metadata:   sm.transitionMetadata(ctxData.Meta),
		})
	}

	return updated, nil
}

// CurrentStatus derives the lifecycle state of a stored account
func (sm *lifecycleMachine) CurrentStatus(account *Account) AccountStatus {
	if account == nil || account.ID == uuid.Nil {
		return StatusUnregistered
	}
	return deriveStatus(account)
}

func (sm *lifecycleMachine) CanTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// ProjectStatus returns the status account would have once patch is stored
func ProjectStatus(account *Account, patch AccountPatch) AccountStatus {
	projected := Account{}
	if account != nil {
		projected = *account
	}

	if patch.IsVerified != nil {
		projected.IsVerified = *patch.IsVerified
	}
	if patch.IsActivated != nil {
		projected.IsAccountActivated = *patch.IsActivated
	}
	if patch.ActivationToken != nil {
		if patch.ActivationToken.Value == "" {
			projected.ActivationToken = nil
		} else {
			v := patch.ActivationToken.Value
			projected.ActivationToken = &v
		}
	}

	return deriveStatus(&projected)
}

func deriveStatus(account *Account) AccountStatus {
	switch {
	case account.IsAccountActivated:
		return StatusActivated
	case account.ActivationToken != nil && *account.ActivationToken != "":
		return StatusPendingActivation
	case account.IsVerified:
		return StatusVerified
	default:
		return StatusPendingVerification
	}
}

func (sm *lifecycleMachine) runHooks(ctx context.Context, hooks []TransitionHook, data TransitionContext, phase TransitionHookPhase) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, data); err != nil {
			if sm.hookErrorHandler == nil {
				return err
			}
			return sm.hookErrorHandler(ctx, phase, err, data)
		}
	}
	return nil
}

func (sm *lifecycleMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = SystemActor
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	recordActivity(ctx, normalizeActivitySink(sm.activitySink), sm.logger, event)
}

func (sm *lifecycleMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
