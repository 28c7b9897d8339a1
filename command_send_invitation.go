package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type SendInvitationMessage struct {
	Actor Actor  `json:"-"`
	Token string `json:"token" doc:"Token of the pending invitation to (re)send."`
}

func (p SendInvitationMessage) Type() string { return "invitation.send" }

// SendInvitationHandler emails the registration link for a pending
// invitation. Unlike the other flows, a delivery failure here IS surfaced to
// the privileged caller: the email is the entire point of the call, and the
// invitation row it depends on has already committed. That inconsistency
// window is accepted and visible, not hidden.
type SendInvitationHandler struct {
	repo     RepositoryManager
	mailer   EmailDispatcher
	config   *Config
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewSendInvitationHandler creates a handler with sane defaults.
func NewSendInvitationHandler(repo RepositoryManager, mailer EmailDispatcher, config *Config) *SendInvitationHandler {
	return &SendInvitationHandler{
		repo:     repo,
		mailer:   mailer,
		config:   config,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit invitation events.
func (h *SendInvitationHandler) WithActivitySink(sink ActivitySink) *SendInvitationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *SendInvitationHandler) WithLogger(logger Logger) *SendInvitationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *SendInvitationHandler) WithClock(clock func() time.Time) *SendInvitationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *SendInvitationHandler) Execute(ctx context.Context, event SendInvitationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation send",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendInvitationHandler) execute(ctx context.Context, event SendInvitationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := RequirePrivileged(event.Actor); err != nil {
		return err
	}

	invitation, err := h.repo.Invitations().GetByToken(ctx, event.Token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidInvitation
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve invitation")
	}

	if !invitation.IsConsumable(h.now()) {
		return ErrInvalidInvitation.WithMetadata(map[string]any{
			"status": invitation.Status,
		})
	}

	if h.mailer == nil {
		return ErrDeliveryError.WithMetadata(map[string]any{
			"reason": "no mailer configured",
		})
	}

	inviterName := ""
	if invitation.InvitedBy != nil {
		inviterName = invitation.InvitedBy.Name
	}

	baseURL := devBaseURL
	if h.config != nil {
		baseURL = h.config.BaseURL(h.logger)
	}

	msg := invitationEmail(invitation.Email, inviterName, AcceptInvitationLink(baseURL, invitation.Token))
	if err := h.mailer.Send(ctx, msg); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver invitation email").
			WithTextCode(TextCodeDeliveryError)
	}

	h.recordActivity(ctx, event.Actor, invitation)

	return nil
}

func (h *SendInvitationHandler) recordActivity(ctx context.Context, actor Actor, invitation *Invitation) {
	event := ActivityEvent{
		Action:   ActivityInvitationEmailDelivered,
		Entity:   "invitation",
		EntityID: invitation.ID.String(),
		Actor: ActorRef{
			ID:   actor.ID.String(),
			Type: "user",
		},
		Metadata: map[string]any{
			"email": invitation.Email,
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during invitation send: %v", err)
	}
}
