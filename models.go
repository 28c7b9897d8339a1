package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle status of an account.
type UserStatus = string

const (
	// UserStatusActive is a fully operational account
	UserStatusActive UserStatus = "active"
	// UserStatusAway is an active account marked as temporarily unavailable
	UserStatusAway UserStatus = "away"
	// UserStatusSuspended is an account locked out by an admin; all sessions are revoked
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusDeleted is the terminal soft-deleted state
	UserStatusDeleted UserStatus = "deleted"
)

// User is the account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	Avatar        string     `bun:"avatar" json:"avatar,omitempty"`
	LastActiveAt  *time.Time `bun:"last_active_at,nullzero" json:"last_active_at,omitempty"`
	SuspendedAt   *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus normalizes a missing status to active so legacy rows keep working.
func (u *User) EnsureStatus() {
	if u != nil && u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsSuspended reports whether the account is currently suspended.
func (u *User) IsSuspended() bool {
	return u != nil && u.Status == UserStatusSuspended
}

// InvitationStatus tracks the consumption state of an invitation.
type InvitationStatus = string

const (
	// InvitationStatusPending means the invitation may still be consumed
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted means an account was created from the invitation
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusRevoked means an admin withdrew the invitation
	InvitationStatusRevoked InvitationStatus = "revoked"
)

// Invitation is a one-time, role-carrying registration grant. The token
// flips pending to accepted exactly once, atomically with account creation.
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string           `bun:"email,notnull" json:"email,omitempty"`
	Role          UserRole         `bun:"user_role,notnull" json:"user_role,omitempty"`
	Token         string           `bun:"token,notnull,unique" json:"token,omitempty"`
	Status        InvitationStatus `bun:"status,notnull" json:"status,omitempty"`
	ExpiresAt     *time.Time       `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	InvitedByID   *uuid.UUID       `bun:"invited_by_id,nullzero,type:uuid" json:"invited_by_id,omitempty"`
	InvitedBy     *User            `bun:"rel:belongs-to,join:invited_by_id=id" json:"invited_by,omitempty"`
	AcceptedAt    *time.Time       `bun:"accepted_at,nullzero" json:"accepted_at,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsConsumable reports whether the invitation may still create an account.
func (i *Invitation) IsConsumable(now time.Time) bool {
	if i == nil || i.Status != InvitationStatusPending {
		return false
	}
	if i.ExpiresAt != nil && i.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// Session is a persisted login session. Rows are deleted on revocation,
// password reset, and account suspension; there is no soft delete here.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	IPAddress     string     `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
}

// PasswordReset is a single-use reset token. At most one logically live
// token exists per email: issuing a new one deletes all prior rows first.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_resets,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsExpired reports whether the reset token is past its expiry at the given
// moment. Expiry is checked at use time, never at issuance time.
func (p *PasswordReset) IsExpired(now time.Time) bool {
	if p == nil {
		return true
	}
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}
