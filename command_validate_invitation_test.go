package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateInvitationHandler(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	inviter := &identity.User{
		ID:   uuid.New(),
		Name: "Root Admin",
	}

	tests := []struct {
		name       string
		token      string
		invitation *identity.Invitation
		lookupErr  error
		expect     identity.InvitationValidation
	}{
		{
			name:   "missing token is invalid",
			token:  "",
			expect: identity.InvitationValidation{Valid: false, Message: "This invitation link is not valid."},
		},
		{
			name:      "unknown token is invalid",
			token:     "nope",
			lookupErr: notFoundErr(),
			expect:    identity.InvitationValidation{Valid: false, Message: "This invitation link is not valid."},
		},
		{
			name:  "accepted invitation reports used",
			token: "used-token",
			invitation: &identity.Invitation{
				ID:     uuid.New(),
				Status: identity.InvitationStatusAccepted,
			},
			expect: identity.InvitationValidation{Valid: false, Message: "This invitation has already been used or was revoked."},
		},
		{
			name:  "revoked invitation reports used",
			token: "revoked-token",
			invitation: &identity.Invitation{
				ID:     uuid.New(),
				Status: identity.InvitationStatusRevoked,
			},
			expect: identity.InvitationValidation{Valid: false, Message: "This invitation has already been used or was revoked."},
		},
		{
			name:  "expired invitation reports expired",
			token: "expired-token",
			invitation: &identity.Invitation{
				ID:        uuid.New(),
				Status:    identity.InvitationStatusPending,
				ExpiresAt: &past,
			},
			expect: identity.InvitationValidation{Valid: false, Message: "This invitation has expired."},
		},
		{
			name:  "pending invitation is valid and echoes its grant",
			token: "good-token",
			invitation: &identity.Invitation{
				ID:        uuid.New(),
				Email:     "pepe.rone@example.com",
				Role:      identity.RoleEditor,
				Status:    identity.InvitationStatusPending,
				ExpiresAt: &future,
				InvitedBy: inviter,
			},
			expect: identity.InvitationValidation{
				Valid:         true,
				Email:         "pepe.rone@example.com",
				Role:          identity.RoleEditor,
				InvitedByName: "Root Admin",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepositoryManager{}
			invitations := &MockInvitations{}

			if tt.token != "" {
				repo.On("Invitations").Return(invitations)
				invitations.On("GetByToken", mock.Anything, tt.token).
					Return(tt.invitation, tt.lookupErr).Once()
			}

			handler := identity.NewValidateInvitationHandler(repo).
				WithClock(func() time.Time { return now })

			result, err := handler.Execute(context.Background(), identity.ValidateInvitationMessage{
				Token: tt.token,
			})

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.expect, *result)

			invitations.AssertExpectations(t)
		})
	}
}

func TestValidateInvitationHandlerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := identity.NewValidateInvitationHandler(&MockRepositoryManager{})
	_, err := handler.Execute(ctx, identity.ValidateInvitationMessage{Token: "any"})
	require.Error(t, err)
}
