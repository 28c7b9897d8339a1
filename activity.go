package identity

import (
	"context"
	"time"
)

// ActivityAction enumerates the audit action taxonomy emitted by this package.
type ActivityAction string

const (
	ActivityForgotPasswordRequest    ActivityAction = "auth.forgot_password_request"
	ActivityResetPassword            ActivityAction = "auth.reset_password"
	ActivityChangePassword           ActivityAction = "auth.change_password"
	ActivitySessionRevoked           ActivityAction = "auth.session_revoked"
	ActivityAllOtherSessionsRevoked  ActivityAction = "auth.all_other_sessions_revoked"
	ActivityUserRegisterAccepted     ActivityAction = "user.register_accepted"
	ActivityUserUpdate               ActivityAction = "user.update"
	ActivityInvitationEmailDelivered ActivityAction = "invitation.email_delivered"
)

// ActorRef identifies who/what triggered an audited action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action. Events
// are appended after the primary state change commits; they never gate it.
type ActivityEvent struct {
	Action     ActivityAction
	Entity     string
	EntityID   string
	Actor      ActorRef
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
