package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Error kinds surfaced to callers through goerrors.Error.TextCode.
const (
	TextCodeValidation         = "VALIDATION_ERROR"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidState       = "INVALID_ACCOUNT_STATE"
	TextCodeNotFound           = "ACCOUNT_NOT_FOUND"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeInternal           = "INTERNAL_ERROR"
)

// ErrValidation is the base error for malformed input.
var ErrValidation = goerrors.New("invalid request payload", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateEmail is returned when an account with the same normalized email exists.
var ErrDuplicateEmail = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is shared by unknown email and wrong password so
// callers can not tell the two apart.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidState is returned when an account is not in the state an operation requires.
var ErrInvalidState = goerrors.New("account is not pending HOC approval", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidState).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountNotFound is returned when no account matches the lookup.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired is returned for well formed tokens past their expiry.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid covers bad signatures, unexpected algorithms and malformed tokens.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrInternal hides store and infrastructure failures behind a generic message.
var ErrInternal = goerrors.New("internal error", goerrors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString is returned when hashing or comparing an empty password.
var ErrNoEmptyString = errors.New("password can not be an empty string")

// withMeta clones a sentinel so metadata never leaks into the shared value.
func withMeta(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if len(meta) == 0 {
		return clone
	}
	return clone.WithMetadata(meta)
}

// wrapInternal attaches err as the hidden source of an internal error.
func wrapInternal(err error, msg string) error {
	if err == nil {
		return nil
	}

	var ge *goerrors.Error
	if goerrors.As(err, &ge) && ge.TextCode != "" {
		return err
	}

	clone := ErrInternal.Clone()
	clone.Source = err
	if msg != "" {
		clone = clone.WithMetadata(map[string]any{"operation": msg})
	}
	return clone
}

// ErrorKind returns the stable kind for err. Errors that do not carry a known
// kind are reported as internal.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var ge *goerrors.Error
	if !goerrors.As(err, &ge) || ge == nil {
		return TextCodeInternal
	}

	switch ge.TextCode {
	case TextCodeValidation,
		TextCodeDuplicateEmail,
		TextCodeInvalidCredentials,
		TextCodeInvalidState,
		TextCodeNotFound,
		TextCodeTokenExpired,
		TextCodeTokenInvalid:
		return ge.TextCode
	}

	if ge.Category == goerrors.CategoryValidation {
		return TextCodeValidation
	}
	return TextCodeInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind string) bool {
	return err != nil && ErrorKind(err) == kind
}

// IsNotFoundError reports whether err is an account lookup miss.
func IsNotFoundError(err error) bool {
	return IsKind(err, TextCodeNotFound)
}

// IsTokenExpiredError reports whether err is an expired token error.
func IsTokenExpiredError(err error) bool {
	return IsKind(err, TextCodeTokenExpired)
}

// IsDuplicateEmailError reports whether err is a uniqueness violation.
func IsDuplicateEmailError(err error) bool {
	return IsKind(err, TextCodeDuplicateEmail)
}
