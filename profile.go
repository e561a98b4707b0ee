package auth

import (
	"context"

	"github.com/google/uuid"
)

// ProfileService lets an authenticated account read and edit its own record.
// The caller identity is always passed in, never looked up implicitly.
type ProfileService struct {
	store     AccountStore
	passwords PasswordAuthenticator
	logger    Logger
}

// NewProfileService returns a ProfileService. A nil hasher uses the default
// bcrypt cost.
func NewProfileService(store AccountStore, passwords PasswordAuthenticator, logger Logger) *ProfileService {
	if passwords == nil {
		passwords = NewBcryptHasher(passwordHashCost())
	}
	return &ProfileService{
		store:     store,
		passwords: passwords,
		logger:    normalizeLogger(logger),
	}
}

// Profile returns the view of the account identified by id.
func (s *ProfileService) Profile(ctx context.Context, id uuid.UUID) (*AccountView, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err, "load profile")
	}
	view := account.View()
	return &view, nil
}

// UpdateProfile applies the non-empty fields of req. Instructor fields are
// rejected for accounts that are not instructors.
func (s *ProfileService) UpdateProfile(ctx context.Context, id uuid.UUID, req ProfileUpdateRequest) (*AccountView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var current *InstructorProfile
	if req.HasInstructorFields() {
		account, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, wrapInternal(err, "load profile")
		}
		if !account.IsInstructor() {
			return nil, instructorOnly()
		}
		current = account.Instructor
	}

	patch := req.Patch(current)
	if patch.IsEmpty() {
		return s.Profile(ctx, id)
	}

	account, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, wrapInternal(err, "update profile")
	}

	view := account.View()
	return &view, nil
}

// ChangePassword replaces the password after checking the current one.
// A wrong current password returns ErrInvalidCredentials.
func (s *ProfileService) ChangePassword(ctx context.Context, id uuid.UUID, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		return wrapInternal(err, "load account")
	}

	if err := s.passwords.ComparePasswordAndHash(req.CurrentPassword, account.PasswordHash); err != nil {
		return ErrInvalidCredentials.Clone()
	}

	hash, err := s.passwords.HashPassword(req.NewPassword)
	if err != nil {
		return wrapInternal(err, "hash password")
	}

	if _, err := s.store.Update(ctx, id, AccountPatch{PasswordHash: &hash}); err != nil {
		return wrapInternal(err, "update password")
	}

	s.logger.Info("password changed", "account_id", id)
	return nil
}
