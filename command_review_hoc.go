package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// HOCDecision is the outcome of an admin review.
type HOCDecision string

const (
	HOCApprove HOCDecision = "approve"
	HOCReject  HOCDecision = "reject"
)

const (
	MessageHOCApproved = "HOC approved successfully"
	MessageHOCRejected = "HOC request rejected"
)

// target returns the state an approved or rejected request moves to.
func (d HOCDecision) target() (AccountState, bool) {
	switch d {
	case HOCApprove:
		return StateHOC, true
	case HOCReject:
		return StateStudent, true
	}
	return "", false
}

type ReviewHOCMessage struct {
	Actor      ActorRef
	AccountID  uuid.UUID
	Decision   HOCDecision
	Reason     string
	OnResponse func(*AccountView)
}

func (e ReviewHOCMessage) Type() string { return "account.hoc.review" }

// ReviewHOCHandler resolves a pending HOC request.
type ReviewHOCHandler struct {
	machine AccountStateMachine
	logger  Logger
}

func (h *ReviewHOCHandler) Execute(ctx context.Context, event ReviewHOCMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during HOC review",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ReviewHOCHandler) execute(ctx context.Context, event ReviewHOCMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	target, ok := event.Decision.target()
	if !ok {
		return withMeta(ErrValidation, map[string]any{"decision": event.Decision})
	}

	if event.AccountID == uuid.Nil {
		return withMeta(ErrValidation, map[string]any{"account_id": "is required"})
	}

	opts := []TransitionOption{
		WithTransitionMetadata(map[string]any{"decision": string(event.Decision)}),
	}
	if event.Reason != "" {
		opts = append(opts, WithTransitionReason(event.Reason))
	}

	updated, err := h.machine.Transition(ctx, event.Actor, event.AccountID, StatePendingHOC, target, opts...)
	if err != nil {
		if !IsKind(err, TextCodeNotFound) && !IsKind(err, TextCodeInvalidState) {
			h.logger.Error("HOC review failed", "account_id", event.AccountID, "error", err)
		}
		return err
	}

	h.logger.Info("HOC request reviewed", "account_id", event.AccountID, "decision", event.Decision, "actor_id", event.Actor.ID)

	if event.OnResponse != nil {
		view := updated.View()
		event.OnResponse(&view)
	}

	return nil
}
