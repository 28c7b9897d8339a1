package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface the package needs. Handlers accept
// any implementation via their WithLogger builders.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// SecretStore resolves named configuration secrets at call time. Lookups may
// come back absent; callers are expected to degrade rather than fail hard.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, bool)
}

// Actor identifies the authenticated principal driving an operation.
type Actor struct {
	ID   uuid.UUID
	Role UserRole
}

// IsZero reports whether the actor carries no identity.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil && a.Role == ""
}

// RequireStaff gates operations reserved for authenticated staff accounts.
func RequireStaff(actor Actor) error {
	if actor.IsZero() || !actor.Role.IsStaff() {
		return ErrUnauthorized.WithMetadata(map[string]any{
			"actor_id": actor.ID.String(),
			"required": "staff",
		})
	}
	return nil
}

// RequirePrivileged gates operations that act on other accounts.
func RequirePrivileged(actor Actor) error {
	if actor.IsZero() || !actor.Role.IsPrivileged() {
		return ErrUnauthorized.WithMetadata(map[string]any{
			"actor_id": actor.ID.String(),
			"required": "privileged",
		})
	}
	return nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
