package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_USER_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from the deleted status.
var ErrTerminalState = goerrors.New("user state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// IsInvalidTransition reports whether err carries the invalid transition code.
func IsInvalidTransition(err error) bool {
	return hasTextCode(err, textCodeInvalidTransition)
}

// IsTerminalState reports whether err carries the terminal state code.
func IsTerminalState(err error) bool {
	return hasTextCode(err, textCodeTerminalState)
}

// UserStateMachine validates lifecycle transitions for accounts. It holds no
// persistence: the controller owns the transaction so the session-wipe
// cascade commits atomically with the status change.
type UserStateMachine interface {
	Validate(from, to UserStatus) error
	CanTransition(from, to UserStatus) bool
	CurrentStatus(user *User) UserStatus
	// CascadesSessionWipe reports whether entering the target status must
	// empty the account's session set. No transition into suspended or
	// deleted may skip the wipe.
	CascadesSessionWipe(to UserStatus) bool
}

// NewUserStateMachine returns the default transition graph:
// active and away swap freely, either may be suspended or deleted,
// suspended accounts may be reactivated, deleted is terminal.
func NewUserStateMachine() UserStateMachine {
	return &userStateMachine{
		transitions: map[UserStatus]map[UserStatus]struct{}{
			UserStatusActive: {
				UserStatusAway:      {},
				UserStatusSuspended: {},
				UserStatusDeleted:   {},
			},
			UserStatusAway: {
				UserStatusActive:    {},
				UserStatusSuspended: {},
				UserStatusDeleted:   {},
			},
			UserStatusSuspended: {
				UserStatusActive:  {},
				UserStatusDeleted: {},
			},
		},
	}
}

type userStateMachine struct {
	transitions map[UserStatus]map[UserStatus]struct{}
}

func (sm *userStateMachine) Validate(from, to UserStatus) error {
	if to == "" {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == UserStatusDeleted {
		return ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	if from == to {
		return nil
	}

	if !sm.CanTransition(from, to) {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	return nil
}

func (sm *userStateMachine) CanTransition(from, to UserStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	user.EnsureStatus()
	return user.Status
}

func (sm *userStateMachine) CascadesSessionWipe(to UserStatus) bool {
	return to == UserStatusSuspended || to == UserStatusDeleted
}
