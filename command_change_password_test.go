package identity_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChangePasswordHandlerUpdatesHash(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	hasher := &MockPasswordAuthenticator{}
	sink := &capturingSink{}

	actorID := uuid.New()
	actor := identity.Actor{ID: actorID, Role: identity.RoleEditor}

	repo.On("Users").Return(users)
	repo.On("RunInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	users.On("GetByID", mock.Anything, actorID.String()).
		Return(&identity.User{ID: actorID, PasswordHash: "old-hash"}, nil).Once()
	hasher.On("ComparePasswordAndHash", "old-password", "old-hash").Return(nil).Once()
	hasher.On("HashPassword", "new-password").Return("new-hash", nil).Once()
	users.On("UpdatePasswordTx", mock.Anything, mock.Anything, actorID, "new-hash").
		Return(nil).Once()

	handler := identity.NewChangePasswordHandler(repo).
		WithPasswordAuthenticator(hasher).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), identity.ChangePasswordMessage{
		Actor:       actor,
		OldPassword: "old-password",
		NewPassword: "new-password",
	})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, identity.ActivityChangePassword, sink.events[0].Action)
	assert.Equal(t, actorID.String(), sink.events[0].EntityID)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	hasher.AssertExpectations(t)
}

func TestChangePasswordHandlerWrongOldPassword(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	hasher := &MockPasswordAuthenticator{}
	sink := &capturingSink{}

	actorID := uuid.New()

	repo.On("Users").Return(users)
	users.On("GetByID", mock.Anything, actorID.String()).
		Return(&identity.User{ID: actorID, PasswordHash: "old-hash"}, nil).Once()
	hasher.On("ComparePasswordAndHash", "wrong-guess", "old-hash").
		Return(identity.ErrMismatchedHashAndPassword).Once()

	handler := identity.NewChangePasswordHandler(repo).
		WithPasswordAuthenticator(hasher).
		WithActivitySink(sink)

	err := handler.Execute(context.Background(), identity.ChangePasswordMessage{
		Actor:       identity.Actor{ID: actorID, Role: identity.RoleAdmin},
		OldPassword: "wrong-guess",
		NewPassword: "new-password",
	})

	require.Error(t, err)
	assert.True(t, identity.IsIncorrectPassword(err))
	assert.Empty(t, sink.events)

	// a failed proof must not touch the stored hash
	users.AssertNotCalled(t, "UpdatePasswordTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePasswordHandlerRequiresStaffRole(t *testing.T) {
	tests := []struct {
		name  string
		actor identity.Actor
	}{
		{"zero actor", identity.Actor{}},
		{"viewer role", identity.Actor{ID: uuid.New(), Role: identity.RoleViewer}},
		{"unknown role", identity.Actor{ID: uuid.New(), Role: identity.UserRole("intruder")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := identity.NewChangePasswordHandler(&MockRepositoryManager{})

			err := handler.Execute(context.Background(), identity.ChangePasswordMessage{
				Actor:       tt.actor,
				OldPassword: "old-password",
				NewPassword: "new-password",
			})

			require.Error(t, err)
			assert.True(t, identity.IsUnauthorized(err))
		})
	}
}
