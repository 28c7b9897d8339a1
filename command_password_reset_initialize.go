package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetRequestedMessage is the only response body the public surface ever
// sees, whether or not the email maps to an account.
const ResetRequestedMessage = "If an account exists, an email has been sent."

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	// OnResponse receives the internal outcome. Only authenticated/internal
	// callers get to see whether the email was dispatched; the public shape
	// stays identical either way.
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "auth.forgot_password" }

type InitializePasswordResetResponse struct {
	Success bool
	Message string
	// internal-only fields below; never serialized to the public caller
	Reset     *PasswordReset `json:"-"`
	EmailSent bool           `json:"-"`
	EmailErr  error          `json:"-"`
}

// InitializePasswordResetHandler issues single-use reset tokens. The flow is
// enumeration resistant: a ghost email produces the same success response as
// a real one, and the asymmetry stays entirely inside the handler.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	mailer   EmailDispatcher
	config   *Config
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, config *Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		config:   config,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithMailer sets the dispatcher used for the reset email. Without one the
// flow degrades to "token generated, email not sent".
func (h *InitializePasswordResetHandler) WithMailer(mailer EmailDispatcher) *InitializePasswordResetHandler {
	h.mailer = mailer
	return h
}

// WithActivitySink sets the sink used to emit reset request events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *InitializePasswordResetHandler) WithClock(clock func() time.Time) *InitializePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{
		Success: true,
		Message: ResetRequestedMessage,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// identical public outcome, no token row created
			h.respond(event, resp)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token, err := GenerateToken()
	if err != nil {
		return err
	}

	now := h.now()
	expiresAt := now.Add(h.resetTTL())

	reset := &PasswordReset{
		ID:        uuid.New(),
		Email:     user.Email,
		Token:     token,
		ExpiresAt: &expiresAt,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// single live token per email: burn the old rows before inserting
		if _, err := h.repo.PasswordResets().DeleteByEmailTx(ctx, tx, user.Email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate prior reset tokens")
		}

		if reset, err = h.repo.PasswordResets().CreateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	resp.Reset = reset

	// side effects run after the token row committed; their failure cannot
	// roll it back or alter the public response
	hooks := newHookList(h.logger)
	hooks.add(func(ctx context.Context) error {
		err := h.sendResetEmail(ctx, user.Email, token)
		resp.EmailErr = err
		resp.EmailSent = err == nil
		return err
	})
	hooks.add(func(ctx context.Context) error {
		return h.activity.Record(ctx, ActivityEvent{
			Action:   ActivityForgotPasswordRequest,
			Entity:   "password_reset",
			EntityID: reset.ID.String(),
			Actor: ActorRef{
				ID:   user.ID.String(),
				Type: "user",
			},
			OccurredAt: h.now(),
		})
	})
	hooks.run(ctx)

	h.respond(event, resp)
	return nil
}

func (h *InitializePasswordResetHandler) respond(event InitializePasswordResetMessage, resp *InitializePasswordResetResponse) {
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
}

func (h *InitializePasswordResetHandler) resetTTL() time.Duration {
	if h.config != nil && h.config.ResetTokenTTL > 0 {
		return h.config.ResetTokenTTL
	}
	return time.Hour
}

func (h *InitializePasswordResetHandler) sendResetEmail(ctx context.Context, email, token string) error {
	if h.mailer == nil {
		h.logger.Warn("no mailer configured, reset token generated but email not sent")
		return nil
	}

	baseURL := devBaseURL
	if h.config != nil {
		baseURL = h.config.BaseURL(h.logger)
	}

	msg := resetPasswordEmail(email, ResetPasswordLink(baseURL, token))
	if err := h.mailer.Send(ctx, msg); err != nil {
		h.logger.Error("failed to send password reset email: %v", err)
		return err
	}

	return nil
}
