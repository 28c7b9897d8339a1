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

func TestSendInvitationHandlerDeliversRegistrationLink(t *testing.T) {
	repo := &MockRepositoryManager{}
	invitations := &MockInvitations{}
	mailer := &MockEmailDispatcher{}
	sink := &capturingSink{}

	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin}
	invitationID := uuid.New()
	future := time.Now().Add(time.Hour)

	repo.On("Invitations").Return(invitations)
	invitations.On("GetByToken", mock.Anything, "pending-token").
		Return(&identity.Invitation{
			ID:        invitationID,
			Email:     "newcomer@example.com",
			Token:     "pending-token",
			Status:    identity.InvitationStatusPending,
			ExpiresAt: &future,
			InvitedBy: &identity.User{Name: "Root Admin"},
		}, nil).Once()

	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg identity.Email) bool {
		return msg.To == "newcomer@example.com"
	})).Return(nil).Once()

	handler := identity.NewSendInvitationHandler(repo, mailer, &identity.Config{PublicBaseURL: "https://example.com"}).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), identity.SendInvitationMessage{
		Actor: actor,
		Token: "pending-token",
	})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, identity.ActivityInvitationEmailDelivered, sink.events[0].Action)
	assert.Equal(t, invitationID.String(), sink.events[0].EntityID)
	assert.Equal(t, actor.ID.String(), sink.events[0].Actor.ID)

	mailer.AssertExpectations(t)
	invitations.AssertExpectations(t)
}

func TestSendInvitationHandlerRequiresPrivilegedActor(t *testing.T) {
	handler := identity.NewSendInvitationHandler(&MockRepositoryManager{}, &MockEmailDispatcher{}, nil)

	err := handler.Execute(context.Background(), identity.SendInvitationMessage{
		Actor: identity.Actor{ID: uuid.New(), Role: identity.RoleEditor},
		Token: "pending-token",
	})

	require.Error(t, err)
	assert.True(t, identity.IsUnauthorized(err))
}

func TestSendInvitationHandlerRejectsConsumedInvitation(t *testing.T) {
	repo := &MockRepositoryManager{}
	invitations := &MockInvitations{}
	mailer := &MockEmailDispatcher{}

	repo.On("Invitations").Return(invitations)
	invitations.On("GetByToken", mock.Anything, "used-token").
		Return(&identity.Invitation{
			ID:     uuid.New(),
			Status: identity.InvitationStatusAccepted,
		}, nil).Once()

	handler := identity.NewSendInvitationHandler(repo, mailer, nil)
	err := handler.Execute(context.Background(), identity.SendInvitationMessage{
		Actor: identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin},
		Token: "used-token",
	})

	require.Error(t, err)
	assert.True(t, identity.IsInvalidInvitation(err))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendInvitationHandlerSurfacesDeliveryFailure(t *testing.T) {
	repo := &MockRepositoryManager{}
	invitations := &MockInvitations{}
	sink := &capturingSink{}

	future := time.Now().Add(time.Hour)

	repo.On("Invitations").Return(invitations)
	invitations.On("GetByToken", mock.Anything, "pending-token").
		Return(&identity.Invitation{
			ID:        uuid.New(),
			Email:     "newcomer@example.com",
			Token:     "pending-token",
			Status:    identity.InvitationStatusPending,
			ExpiresAt: &future,
		}, nil).Once()

	// no mailer configured counts as a delivery failure for this flow
	handler := identity.NewSendInvitationHandler(repo, nil, nil).
		WithActivitySink(sink)

	err := handler.Execute(context.Background(), identity.SendInvitationMessage{
		Actor: identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin},
		Token: "pending-token",
	})

	require.Error(t, err)
	assert.True(t, identity.IsDeliveryError(err))
	assert.Empty(t, sink.events)
}
