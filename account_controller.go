package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountLifecycleController drives suspend/reactivate/delete transitions.
// The status update and the session-wipe cascade commit in one transaction;
// audit and notification run after commit and are strictly best-effort.
type AccountLifecycleController struct {
	repo     RepositoryManager
	machine  UserStateMachine
	mailer   EmailDispatcher
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewAccountLifecycleController creates a controller with sane defaults.
func NewAccountLifecycleController(repo RepositoryManager) *AccountLifecycleController {
	return &AccountLifecycleController{
		repo:     repo,
		machine:  NewUserStateMachine(),
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithStateMachine overrides the transition graph.
func (c *AccountLifecycleController) WithStateMachine(machine UserStateMachine) *AccountLifecycleController {
	if machine != nil {
		c.machine = machine
	}
	return c
}

// WithMailer enables admin notifications on suspension. Without one the
// notification is skipped silently.
func (c *AccountLifecycleController) WithMailer(mailer EmailDispatcher) *AccountLifecycleController {
	c.mailer = mailer
	return c
}

// WithActivitySink sets the sink used to emit lifecycle events.
func (c *AccountLifecycleController) WithActivitySink(sink ActivitySink) *AccountLifecycleController {
	c.activity = normalizeActivitySink(sink)
	return c
}

// WithLogger overrides the logger used by the controller.
func (c *AccountLifecycleController) WithLogger(logger Logger) *AccountLifecycleController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithClock injects a custom clock (useful for tests).
func (c *AccountLifecycleController) WithClock(clock func() time.Time) *AccountLifecycleController {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Suspend locks the account out and empties its session set in the same
// transaction, so suspension is effective instantly rather than on the next
// login check. Self-suspension is forbidden.
func (c *AccountLifecycleController) Suspend(ctx context.Context, actor Actor, userID uuid.UUID) (*User, error) {
	if err := RequirePrivileged(actor); err != nil {
		return nil, err
	}

	if actor.ID == userID {
		return nil, ErrUnauthorized.WithMetadata(map[string]any{
			"reason": "self-suspension is not allowed",
		})
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.machine.Validate(c.machine.CurrentStatus(user), UserStatusSuspended); err != nil {
		return nil, err
	}

	now := c.now()
	var sessionsRevoked int64

	err = c.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := c.repo.Users().UpdateStatusTx(ctx, tx, userID, UserStatusSuspended, WithSuspendedAt(&now)); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to suspend user")
		}

		if c.machine.CascadesSessionWipe(UserStatusSuspended) {
			if sessionsRevoked, err = c.repo.Sessions().DeleteForUserTx(ctx, tx, userID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke sessions during suspension")
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to suspend user")
	}

	user.Status = UserStatusSuspended
	user.SuspendedAt = &now

	hooks := newHookList(c.logger)
	hooks.add(c.auditStatusChange(actor, user, UserStatusSuspended, map[string]any{
		"sessions_revoked": sessionsRevoked,
	}))
	hooks.add(c.notifyAdmins(actor, user))
	hooks.run(ctx)

	return user, nil
}

// Reactivate returns a suspended account to active. Sessions revoked during
// suspension stay revoked; the user must authenticate again.
func (c *AccountLifecycleController) Reactivate(ctx context.Context, actor Actor, userID uuid.UUID) (*User, error) {
	if err := RequirePrivileged(actor); err != nil {
		return nil, err
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.machine.Validate(c.machine.CurrentStatus(user), UserStatusActive); err != nil {
		return nil, err
	}

	err = c.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := c.repo.Users().UpdateStatusTx(ctx, tx, userID, UserStatusActive, WithSuspendedAt(nil))
		return err
	})

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reactivate user")
	}

	user.Status = UserStatusActive
	user.SuspendedAt = nil

	hooks := newHookList(c.logger)
	hooks.add(c.auditStatusChange(actor, user, UserStatusActive, nil))
	hooks.run(ctx)

	return user, nil
}

// Delete soft-deletes the account. Terminal: the same kill-all-sessions rule
// as suspension applies, and there is no way back through this controller.
func (c *AccountLifecycleController) Delete(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if err := RequirePrivileged(actor); err != nil {
		return err
	}

	if actor.ID == userID {
		return ErrUnauthorized.WithMetadata(map[string]any{
			"reason": "self-deletion is not allowed",
		})
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := c.machine.Validate(c.machine.CurrentStatus(user), UserStatusDeleted); err != nil {
		return err
	}

	err = c.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := c.repo.Users().SoftDeleteTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to soft-delete user")
		}

		if c.machine.CascadesSessionWipe(UserStatusDeleted) {
			if _, err := c.repo.Sessions().DeleteForUserTx(ctx, tx, userID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke sessions during deletion")
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	hooks := newHookList(c.logger)
	hooks.add(c.auditStatusChange(actor, user, UserStatusDeleted, nil))
	hooks.run(ctx)

	return nil
}

func (c *AccountLifecycleController) loadUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := c.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}
	return user, nil
}

func (c *AccountLifecycleController) auditStatusChange(actor Actor, user *User, to UserStatus, extra map[string]any) PostCommitHook {
	return func(ctx context.Context) error {
		metadata := map[string]any{
			"status": string(to),
		}
		for k, v := range extra {
			metadata[k] = v
		}

		return c.activity.Record(ctx, ActivityEvent{
			Action:   ActivityUserUpdate,
			Entity:   "user",
			EntityID: user.ID.String(),
			Actor: ActorRef{
				ID:   actor.ID.String(),
				Type: "user",
			},
			Metadata:   metadata,
			OccurredAt: c.now(),
		})
	}
}

// notifyAdmins emails the other privileged accounts about a suspension.
// A failed notification is logged by the hook runner and never surfaces to
// the caller.
func (c *AccountLifecycleController) notifyAdmins(actor Actor, user *User) PostCommitHook {
	return func(ctx context.Context) error {
		if c.mailer == nil {
			return nil
		}

		admins, err := c.repo.Users().ListByRole(ctx, RoleAdmin)
		if err != nil {
			return err
		}

		for _, admin := range admins {
			if admin.ID == actor.ID || admin.ID == user.ID {
				continue
			}
			if err := c.mailer.Send(ctx, suspensionNoticeEmail(admin.Email, user.Name)); err != nil {
				c.logger.Warn("failed to notify %s about suspension: %v", admin.Email, err)
			}
		}

		return nil
	}
}
