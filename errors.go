package identity

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidInvitation covers missing, used, revoked, and expired invitation tokens
	TextCodeInvalidInvitation = "INVALID_INVITATION"
	// TextCodeUserExists signals an account already exists for the invitation email
	TextCodeUserExists = "USER_EXISTS"
	// TextCodeInvalidOrExpiredToken covers missing and expired reset tokens
	TextCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	// TextCodeUserNotFound signals the reset target account disappeared
	TextCodeUserNotFound = "USER_NOT_FOUND"
	// TextCodeIncorrectPassword signals the old-password proof failed
	TextCodeIncorrectPassword = "INCORRECT_PASSWORD"
	// TextCodeSessionNotFound covers both a missing session and one owned by
	// another account; callers must not be able to tell the two apart
	TextCodeSessionNotFound = "SESSION_NOT_FOUND_OR_FORBIDDEN"
	// TextCodeUnauthorized signals a role-gate failure
	TextCodeUnauthorized = "UNAUTHORIZED"
	// TextCodeDeliveryError signals an email transport failure
	TextCodeDeliveryError = "DELIVERY_ERROR"
)

// ErrInvalidInvitation is returned when an invitation token cannot be consumed.
var ErrInvalidInvitation = goerrors.New("invitation is invalid, already used, or expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidInvitation).
	WithCode(goerrors.CodeBadRequest)

// ErrUserExists is returned when registering against an email that already has an account.
var ErrUserExists = goerrors.New("an account already exists for this email", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(goerrors.CodeConflict)

// ErrInvalidOrExpiredToken is returned when a reset token is unknown or past expiry.
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired password reset token", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidOrExpiredToken).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned when an operation targets a missing account.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrIncorrectPassword is returned when the current-password check fails.
var ErrIncorrectPassword = goerrors.New("current password is incorrect", goerrors.CategoryValidation).
	WithTextCode(TextCodeIncorrectPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionNotFound is returned when a session does not exist or does not
// belong to the caller. The message is deliberately the same for both cases.
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnauthorized is returned when the acting principal fails a role gate.
var ErrUnauthorized = goerrors.New("not authorized to perform this action", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeForbidden)

// ErrDeliveryError is returned when transactional email cannot be sent.
var ErrDeliveryError = goerrors.New("failed to deliver email", goerrors.CategoryExternal).
	WithTextCode(TextCodeDeliveryError).
	WithCode(goerrors.CodeInternal)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("password cannot be an empty string")

// ErrMismatchedHashAndPassword wraps bcrypt's mismatch error.
var ErrMismatchedHashAndPassword = errors.New("hash and password mismatch")

// hasTextCode walks the error chain so a wrapped sentinel still matches.
func hasTextCode(err error, code string) bool {
	for err != nil {
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == code {
			return true
		}
		err = errors.Unwrap(richErr)
	}
	return false
}

// IsInvalidInvitation reports whether err carries the invalid invitation code.
func IsInvalidInvitation(err error) bool {
	return hasTextCode(err, TextCodeInvalidInvitation)
}

// IsUserExists reports whether err carries the user exists code.
func IsUserExists(err error) bool {
	return hasTextCode(err, TextCodeUserExists)
}

// IsInvalidOrExpiredToken reports whether err carries the reset token code.
func IsInvalidOrExpiredToken(err error) bool {
	return hasTextCode(err, TextCodeInvalidOrExpiredToken)
}

// IsUserNotFound reports whether err carries the user not found code.
func IsUserNotFound(err error) bool {
	return hasTextCode(err, TextCodeUserNotFound)
}

// IsIncorrectPassword reports whether err carries the incorrect password code.
func IsIncorrectPassword(err error) bool {
	return hasTextCode(err, TextCodeIncorrectPassword)
}

// IsSessionNotFound reports whether err carries the session ownership code.
func IsSessionNotFound(err error) bool {
	return hasTextCode(err, TextCodeSessionNotFound)
}

// IsUnauthorized reports whether err carries the role-gate code.
func IsUnauthorized(err error) bool {
	return hasTextCode(err, TextCodeUnauthorized)
}

// IsDeliveryError reports whether err carries the email delivery code.
func IsDeliveryError(err error) bool {
	return hasTextCode(err, TextCodeDeliveryError)
}
