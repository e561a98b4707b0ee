package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RegistrarOption customizes a Registrar.
type RegistrarOption func(*Registrar)

// WithRegistrarLogger sets the logger
func WithRegistrarLogger(logger Logger) RegistrarOption {
	return func(r *Registrar) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistrarActivitySink sets the sink for registration and review events.
func WithRegistrarActivitySink(sink ActivitySink) RegistrarOption {
	return func(r *Registrar) {
		r.activitySink = normalizeActivitySink(sink)
	}
}

// WithRegistrarPasswordAuthenticator overrides the password hasher.
func WithRegistrarPasswordAuthenticator(p PasswordAuthenticator) RegistrarOption {
	return func(r *Registrar) {
		if p != nil {
			r.passwords = p
		}
	}
}

// WithRegistrarClock injects a custom clock (useful for tests).
func WithRegistrarClock(now func() time.Time) RegistrarOption {
	return func(r *Registrar) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPhoneRegion sets the default region used to normalize HOC phone numbers.
func WithPhoneRegion(region string) RegistrarOption {
	return func(r *Registrar) {
		r.phoneRegion = region
	}
}

// WithDeterministicIDs derives account ids from the normalized email.
func WithDeterministicIDs() RegistrarOption {
	return func(r *Registrar) {
		r.useHashid = true
	}
}

// Registrar runs registration and HOC approval against an AccountStore.
type Registrar struct {
	store        AccountStore
	passwords    PasswordAuthenticator
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	phoneRegion  string
	useHashid    bool

	register *RegisterAccountHandler
	review   *ReviewHOCHandler
}

// NewRegistrar wires the registration and review handlers.
func NewRegistrar(store AccountStore, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		store:        store,
		passwords:    NewBcryptHasher(passwordHashCost()),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
		phoneRegion:  DefaultPhoneRegion,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	r.register = &RegisterAccountHandler{
		store:        r.store,
		passwords:    r.passwords,
		logger:       r.logger,
		activitySink: r.activitySink,
		now:          r.now,
		phoneRegion:  r.phoneRegion,
		useHashid:    r.useHashid,
	}

	r.review = &ReviewHOCHandler{
		machine: NewAccountStateMachine(r.store,
			WithStateMachineClock(r.now),
			WithStateMachineActivitySink(r.activitySink),
			WithStateMachineLogger(r.logger),
		),
		logger: r.logger,
	}

	return r
}

// Register validates req and creates the account.
func (r *Registrar) Register(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	var result *RegistrationResult
	err := r.register.Execute(ctx, RegisterAccountMessage{
		Request: req,
		OnResponse: func(res *RegistrationResult) {
			result = res
		},
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveHOC moves a pending HOC account to HOC. It fails with NotFound for
// unknown ids and InvalidState for accounts that are not pending.
func (r *Registrar) ApproveHOC(ctx context.Context, actor ActorRef, id uuid.UUID) (*AccountView, error) {
	return r.reviewHOC(ctx, actor, id, HOCApprove, "")
}

// RejectHOC returns a pending HOC account to a plain student.
func (r *Registrar) RejectHOC(ctx context.Context, actor ActorRef, id uuid.UUID, reason string) (*AccountView, error) {
	return r.reviewHOC(ctx, actor, id, HOCReject, reason)
}

func (r *Registrar) reviewHOC(ctx context.Context, actor ActorRef, id uuid.UUID, decision HOCDecision, reason string) (*AccountView, error) {
	var view *AccountView
	err := r.review.Execute(ctx, ReviewHOCMessage{
		Actor:     actor,
		AccountID: id,
		Decision:  decision,
		Reason:    reason,
		OnResponse: func(v *AccountView) {
			view = v
		},
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListPendingHOC returns every account awaiting HOC approval, oldest first.
func (r *Registrar) ListPendingHOC(ctx context.Context) ([]AccountView, error) {
	accounts, err := r.store.ListByState(ctx, StatePendingHOC)
	if err != nil {
		r.logger.Error("list pending HOC failed", "error", err)
		return nil, wrapInternal(err, "list pending HOC")
	}
	return ToViews(accounts), nil
}
