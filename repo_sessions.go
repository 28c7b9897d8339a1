package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Sessions interface {
	repository.Repository[*Session]

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Session, error)

	GetOwned(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error)

	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	// DeleteForUser removes every session row for the account. Used by the
	// password reset and suspension cascades.
	DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)

	// DeleteForUserExceptTx removes every session for the account except the
	// one carrying the given token, keeping the caller's live request valid.
	DeleteForUserExceptTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, keepToken string) (int64, error)

	// DeleteExpiredTx prunes sessions past their expiry. Housekeeping only;
	// the lifecycle cascades never rely on it.
	DeleteExpiredTx(ctx context.Context, tx bun.IDB, now time.Time) (int64, error)
}

type sessions struct {
	repository.Repository[*Session]
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*Session](db, repository.ModelHandlers[*Session]{
		NewRecord: func() *Session { return &Session{} },
		GetID: func(record *Session) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Session, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &sessions{
		Repository: repo,
		db:         db,
	}
}

func (a *sessions) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	return a.ListByUserTx(ctx, a.db, userID)
}

func (a *sessions) ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Session, error) {
	records := []*Session{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// GetOwned loads a session only when it belongs to the given user. A missing
// row and a row owned by someone else are indistinguishable to the caller.
func (a *sessions) GetOwned(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	record := &Session{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", sessionID).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"session_id": sessionID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *sessions) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *sessions) DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return a.DeleteForUserTx(ctx, a.db, userID)
}

func (a *sessions) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *sessions) DeleteForUserExceptTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, keepToken string) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.token != ?", keepToken).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *sessions) DeleteExpiredTx(ctx context.Context, tx bun.IDB, now time.Time) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.expires_at IS NOT NULL").
		Where("?TableAlias.expires_at < ?", now).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
