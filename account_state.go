package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// AccountState is the activation state of an account. The persisted
// role/isHOC/isHOCPending triple is derived from it and only exists at the
// storage boundary.
type AccountState string

const (
	StateStudent    AccountState = "student"
	StatePendingHOC AccountState = "pending_hoc"
	StateHOC        AccountState = "hoc"
	StateInstructor AccountState = "instructor"
)

// IsValid reports whether s is a known state.
func (s AccountState) IsValid() bool {
	switch s {
	case StateStudent, StatePendingHOC, StateHOC, StateInstructor:
		return true
	}
	return false
}

func (s AccountState) String() string {
	return string(s)
}

// Role is the stored role for the state.
func (s AccountState) Role() Role {
	if s == StateInstructor {
		return RoleInstructor
	}
	return RoleStudent
}

// StorageFlags returns the persisted representation of s.
func (s AccountState) StorageFlags() (role Role, isHOC, isHOCPending bool) {
	switch s {
	case StatePendingHOC:
		return RoleStudent, false, true
	case StateHOC:
		return RoleStudent, true, false
	case StateInstructor:
		return RoleInstructor, false, false
	default:
		return RoleStudent, false, false
	}
}

// StateFromStorage rebuilds the state from persisted flags. Rows with both
// flags set, or an instructor with HOC flags, are rejected as corrupt.
func StateFromStorage(role Role, isHOC, isHOCPending bool) (AccountState, error) {
	if isHOC && isHOCPending {
		return "", corruptFlags("isHOC and isHOCPending are both set", role)
	}

	switch role {
	case RoleInstructor:
		if isHOC || isHOCPending {
			return "", corruptFlags("instructor with HOC flags", role)
		}
		return StateInstructor, nil
	case RoleStudent:
		switch {
		case isHOC:
			return StateHOC, nil
		case isHOCPending:
			return StatePendingHOC, nil
		default:
			return StateStudent, nil
		}
	}

	return "", corruptFlags("unknown role", role)
}

func corruptFlags(reason string, role Role) error {
	return goerrors.New("corrupt account flags: "+reason, goerrors.CategoryInternal).
		WithTextCode(TextCodeInternal).
		WithMetadata(map[string]any{"role": string(role)})
}

// InitialState derives the state a freshly registered account starts in.
func InitialState(requested Role) AccountState {
	switch requested {
	case RoleHOC:
		return StatePendingHOC
	case RoleInstructor:
		return StateInstructor
	default:
		return StateStudent
	}
}
