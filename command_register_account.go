package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const (
	MessageAccountCreated    = "Account created successfully!"
	MessageHOCPendingCreated = "Account created! HOC role pending admin approval."
)

// RegistrationResult is returned by a successful registration. No token is
// issued at signup.
type RegistrationResult struct {
	Account AccountView `json:"user"`
	Message string      `json:"message"`
}

type RegisterAccountMessage struct {
	Request    RegistrationRequest
	OnResponse func(*RegistrationResult)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountHandler validates a registration draft and persists the
// account in its initial state.
type RegisterAccountHandler struct {
	store        AccountStore
	passwords    PasswordAuthenticator
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
	phoneRegion  string
	useHashid    bool
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
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	req := event.Request
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	// fast path only, Create enforces uniqueness
	if _, err := h.store.FindByEmail(ctx, req.Email); err == nil {
		return withMeta(ErrDuplicateEmail, map[string]any{"email": req.Email})
	} else if !IsNotFoundError(err) {
		h.logger.Error("registration lookup failed", "error", err)
		return wrapInternal(err, "registration lookup")
	}

	hash, err := h.passwords.HashPassword(req.Password)
	if err != nil {
		return wrapInternal(err, "hash password")
	}

	account := h.buildAccount(req, hash)

	created, err := h.store.Create(ctx, account)
	if err != nil {
		if IsDuplicateEmailError(err) {
			return err
		}
		h.logger.Error("registration create failed", "error", err)
		return wrapInternal(err, "create account")
	}

	actor := ActorRef{ID: created.ID.String(), Type: "account"}
	recordActivity(ctx, h.activitySink, h.logger, h.now, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     actor,
		AccountID: created.ID.String(),
		Email:     created.Email,
		ToState:   created.State,
		Metadata:  map[string]any{"requested_role": req.RequestedRole().String()},
	})

	message := MessageAccountCreated
	if created.IsHOCPending() {
		message = MessageHOCPendingCreated
		recordActivity(ctx, h.activitySink, h.logger, h.now, ActivityEvent{
			EventType: ActivityEventHOCRequested,
			Actor:     actor,
			AccountID: created.ID.String(),
			Email:     created.Email,
			ToState:   created.State,
		})
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegistrationResult{
			Account: created.View(),
			Message: message,
		})
	}

	return nil
}

func (h *RegisterAccountHandler) buildAccount(req RegistrationRequest, hash string) *Account {
	requested := req.RequestedRole()
	now := h.now()

	account := &Account{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Department:   req.Department,
		AcademicYear: req.AcademicYear,
		State:        InitialState(requested),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if h.useHashid {
		if id, err := hashid.NewUUID(req.Email); err == nil {
			account.ID = id
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	switch requested {
	case RoleHOC:
		account.HOC = &HOCProfile{
			Phone:     NormalizePhone(req.Phone, h.phoneRegion),
			StudentID: req.StudentID,
		}
	case RoleInstructor:
		account.Instructor = &InstructorProfile{
			Qualification:   req.Qualification,
			Experience:      req.Experience,
			Office:          req.Office,
			Specializations: req.Specializations,
			Bio:             req.Bio,
		}
	}

	return account
}
