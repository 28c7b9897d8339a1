package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionManager enumerates and revokes the persisted sessions of one
// principal. Every operation is scoped to the calling user; ownership is
// enforced in the query so a privileged role cannot revoke someone else's
// session through this path.
type SessionManager struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewSessionManager creates a manager with sane defaults.
func NewSessionManager(repo RepositoryManager) *SessionManager {
	return &SessionManager{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit session events.
func (m *SessionManager) WithActivitySink(sink ActivitySink) *SessionManager {
	m.activity = normalizeActivitySink(sink)
	return m
}

// WithLogger overrides the logger used by the manager.
func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock injects a custom clock (useful for tests).
func (m *SessionManager) WithClock(clock func() time.Time) *SessionManager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// List returns the caller's sessions, most recent first. The payload carries
// the session token so the UI can mark its own "current" entry client-side.
func (m *SessionManager) List(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	sessions, err := m.repo.Sessions().ListByUser(ctx, userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list sessions")
	}
	return sessions, nil
}

// Revoke deletes one of the caller's sessions. A session that does not exist
// and a session owned by another account produce the same failure.
func (m *SessionManager) Revoke(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := m.repo.Sessions().GetOwned(ctx, userID, sessionID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrSessionNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve session")
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Sessions().DeleteByIDTx(ctx, tx, session.ID)
	})

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke session")
	}

	m.recordActivity(ctx, userID, ActivityEvent{
		Action:   ActivitySessionRevoked,
		Entity:   "session",
		EntityID: session.ID.String(),
		Metadata: map[string]any{
			"ip_address": session.IPAddress,
			"user_agent": session.UserAgent,
		},
	})

	return nil
}

// RevokeAllOthers deletes every session of the caller except the one whose
// token matches currentToken, so the live request stays valid. The token
// must come from the authenticated transport layer, never from client input,
// or a caller could shield an arbitrary session from revocation.
func (m *SessionManager) RevokeAllOthers(ctx context.Context, userID uuid.UUID, currentToken string) (int64, error) {
	var revoked int64

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		revoked, err = m.repo.Sessions().DeleteForUserExceptTx(ctx, tx, userID, currentToken)
		return err
	})

	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke other sessions")
	}

	m.recordActivity(ctx, userID, ActivityEvent{
		Action:   ActivityAllOtherSessionsRevoked,
		Entity:   "session",
		EntityID: userID.String(),
		Metadata: map[string]any{
			"revoked_count": revoked,
		},
	})

	return revoked, nil
}

func (m *SessionManager) recordActivity(ctx context.Context, userID uuid.UUID, event ActivityEvent) {
	event.Actor = ActorRef{
		ID:   userID.String(),
		Type: "user",
	}
	event.OccurredAt = m.now()

	if err := normalizeActivitySink(m.activity).Record(ctx, event); err != nil {
		m.logger.Warn("activity sink error during session revocation: %v", err)
	}
}
