package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Human-readable outcomes for the public invitation check. Each failure mode
// gets its own message, but none of them leaks internals or stack traces.
const (
	invitationMsgInvalid = "This invitation link is not valid."
	invitationMsgUsed    = "This invitation has already been used or was revoked."
	invitationMsgExpired = "This invitation has expired."
)

type ValidateInvitationMessage struct {
	Token string `json:"token" doc:"Opaque invitation token from the registration link."`
}

func (e ValidateInvitationMessage) Type() string { return "invitation.validate" }

// InvitationValidation is the read-only result of checking a token. When
// Valid is false, Message is safe to show on the public registration page.
type InvitationValidation struct {
	Valid         bool     `json:"valid"`
	Message       string   `json:"message,omitempty"`
	Email         string   `json:"email,omitempty"`
	Role          UserRole `json:"role,omitempty"`
	InvitedByName string   `json:"invited_by_name,omitempty"`
}

type ValidateInvitationHandler struct {
	repo RepositoryManager
	now  func() time.Time
}

// NewValidateInvitationHandler creates a handler with sane defaults.
func NewValidateInvitationHandler(repo RepositoryManager) *ValidateInvitationHandler {
	return &ValidateInvitationHandler{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (h *ValidateInvitationHandler) WithClock(clock func() time.Time) *ValidateInvitationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

// Execute checks whether the token may still be consumed. Side-effect free:
// the registration transaction re-validates from scratch, so a stale answer
// here is harmless.
func (h *ValidateInvitationHandler) Execute(ctx context.Context, event ValidateInvitationMessage) (*InvitationValidation, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation validation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ValidateInvitationHandler) execute(ctx context.Context, event ValidateInvitationMessage) (*InvitationValidation, error) {
	if event.Token == "" {
		return &InvitationValidation{Valid: false, Message: invitationMsgInvalid}, nil
	}

	invitation, err := h.repo.Invitations().GetByToken(ctx, event.Token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return &InvitationValidation{Valid: false, Message: invitationMsgInvalid}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve invitation")
	}

	if invitation.Status != InvitationStatusPending {
		return &InvitationValidation{Valid: false, Message: invitationMsgUsed}, nil
	}

	now := h.now()
	if invitation.ExpiresAt != nil && invitation.ExpiresAt.Before(now) {
		return &InvitationValidation{Valid: false, Message: invitationMsgExpired}, nil
	}

	result := &InvitationValidation{
		Valid: true,
		Email: invitation.Email,
		Role:  invitation.Role,
	}

	if invitation.InvitedBy != nil {
		result.InvitedByName = invitation.InvitedBy.Name
	}

	return result, nil
}
