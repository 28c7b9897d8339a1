package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type PasswordResets interface {
	repository.Repository[*PasswordReset]

	GetByToken(ctx context.Context, token string) (*PasswordReset, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*PasswordReset, error)

	// DeleteByEmailTx removes every reset row for the email, enforcing the
	// single-live-token invariant before a new row is inserted.
	DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) (int64, error)

	DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) error
}

type passwordResets struct {
	repository.Repository[*PasswordReset]
	db *bun.DB
}

var _ PasswordResets = (*passwordResets)(nil)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordReset](db, repository.ModelHandlers[*PasswordReset]{
		NewRecord: func() *PasswordReset {
			return &PasswordReset{}
		},
		GetID: func(record *PasswordReset) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *PasswordReset, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
	}
}

func (a *passwordResets) GetByToken(ctx context.Context, token string) (*PasswordReset, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *passwordResets) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*PasswordReset, error) {
	record := &PasswordReset{}
	err := tx.NewSelect().
		Model(record).
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

func (a *passwordResets) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) (int64, error) {
	res, err := tx.NewDelete().
		Model((*PasswordReset)(nil)).
		Where("?TableAlias.email = ?", email).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *passwordResets) DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) error {
	_, err := tx.NewDelete().
		Model((*PasswordReset)(nil)).
		Where("?TableAlias.token = ?", token).
		Exec(ctx)
	return err
}
