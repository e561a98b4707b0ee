package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor     ActorRef
	AccountID uuid.UUID
	Account   *Account
	From      AccountState
	To        AccountState
	Meta      TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// AccountStateMachine moves accounts between activation states.
type AccountStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, id uuid.UUID, from, to AccountState, opts ...TransitionOption) (*Account, error)
	CanTransition(from, to AccountState) bool
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish transitions.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
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

// WithBeforeTransitionHook adds a hook executed before the state update.
// A hook error aborts the transition.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the state update
// succeeds. Errors are logged, the stored state is already committed.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by store.
func NewAccountStateMachine(store AccountStore, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		store: store,
		transitions: map[AccountState]map[AccountState]ActivityEventType{
			StatePendingHOC: {
				StateHOC:     ActivityEventHOCApproved,
				StateStudent: ActivityEventHOCRejected,
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	store        AccountStore
	transitions  map[AccountState]map[AccountState]ActivityEventType
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
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

func (sm *accountStateMachine) CanTransition(from, to AccountState) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Transition swaps the account from one state to another. The store performs
// the check and the write in one step, so two concurrent callers can never
// both succeed.
func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, id uuid.UUID, from, to AccountState, opts ...TransitionOption) (*Account, error) {
	if !sm.CanTransition(from, to) {
		return nil, withMeta(ErrInvalidState, map[string]any{
			"from": from,
			"to":   to,
		})
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	tc := TransitionContext{
		Actor:     actor,
		AccountID: id,
		From:      from,
		To:        to,
		Meta:      options.cloneMetadata(),
	}

	for _, hook := range options.beforeHooks {
		if err := hook(ctx, tc); err != nil {
			return nil, err
		}
	}

	updated, err := sm.store.CompareAndSwapState(ctx, id, from, to)
	if err != nil {
		return nil, wrapInternal(err, "compare and swap state")
	}
	tc.Account = updated

	for _, hook := range options.afterHooks {
		if err := hook(ctx, tc); err != nil {
			sm.logger.Warn("after transition hook failed", "account_id", id, "to", to, "error", err)
		}
	}

	recordActivity(ctx, sm.activitySink, sm.logger, sm.now, ActivityEvent{
		EventType: sm.transitions[from][to],
		Actor:     actor,
		AccountID: id.String(),
		Email:     updated.Email,
		FromState: from,
		ToState:   to,
		Metadata:  transitionMetadata(tc.Meta),
	})

	return updated, nil
}

func transitionMetadata(meta TransitionMetadata) map[string]any {
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
