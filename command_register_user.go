package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name      string `json:"name"`
	Password  string `json:"password"`
	Token     string `json:"token"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler consumes an invitation and creates the account in one
// transaction. Registration is invite-only: there is no open self-signup
// branch, regardless of how many accounts exist. Email and role come from
// the invitation row exclusively, never from the message.
type RegisterUserHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *RegisterUserHandler) WithClock(clock func() time.Time) *RegisterUserHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrInvalidInvitation.WithMetadata(map[string]any{
			"reason": "missing token",
		})
	}

	user := &User{}
	invitation := &Invitation{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		// never trust a prior client-side validation pass
		invitation, err = h.repo.Invitations().GetByTokenTx(ctx, tx, event.Token)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidInvitation
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve invitation")
		}

		now := h.now()
		if !invitation.IsConsumable(now) {
			return ErrInvalidInvitation.WithMetadata(map[string]any{
				"status": invitation.Status,
			})
		}

		// fail before the expensive hashing step
		if _, err = h.repo.Users().GetByEmailTx(ctx, tx, invitation.Email); err == nil {
			return ErrUserExists
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing user")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}

		user.Name = event.Name
		user.Email = invitation.Email
		user.Role = invitation.Role
		user.PasswordHash = hash
		user.Status = UserStatusActive
		if event.UseHashid {
			if id, err := hashid.NewUUID(invitation.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		// the conditional flip is the race arbiter: a concurrent consumer
		// that lost sees zero affected rows here
		flipped, err := h.repo.Invitations().AcceptTx(ctx, tx, invitation.ID, now)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark invitation accepted")
		}
		if !flipped {
			return ErrInvalidInvitation.WithMetadata(map[string]any{
				"reason": "invitation already consumed",
			})
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.recordActivity(ctx, user, invitation)

	return nil
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, user *User, invitation *Invitation) {
	if user == nil || user.ID == uuid.Nil {
		return
	}

	event := ActivityEvent{
		Action:   ActivityUserRegisterAccepted,
		Entity:   "user",
		EntityID: user.ID.String(),
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		Metadata: map[string]any{
			"invitation_id": invitation.ID.String(),
			"role":          string(user.Role),
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}
