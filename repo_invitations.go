package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Invitations interface {
	repository.Repository[*Invitation]

	GetByToken(ctx context.Context, token string) (*Invitation, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Invitation, error)

	// Accept flips a pending invitation to accepted. The UPDATE is
	// conditional on the pending status so concurrent consumers race on the
	// row itself: the loser observes zero affected rows.
	AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (bool, error)
}

type invitations struct {
	repository.Repository[*Invitation]
	db *bun.DB
}

var _ Invitations = (*invitations)(nil)

func NewInvitationsRepository(db *bun.DB) Invitations {
	repo := repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
		NewRecord: func() *Invitation { return &Invitation{} },
		GetID: func(record *Invitation) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Invitation, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &invitations{
		Repository: repo,
		db:         db,
	}
}

func (a *invitations) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *invitations) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Invitation, error) {
	record := &Invitation{}
	err := tx.NewSelect().
		Model(record).
		Relation("InvitedBy").
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *invitations) AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*Invitation)(nil)).
		Set("status = ?", InvitationStatusAccepted).
		Set("accepted_at = ?", at).
		Set("updated_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", InvitationStatusPending).
		Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}
