package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ArtifactStore implements accounts.ArtifactStore using Bun.
type ArtifactStore struct {
	db bun.IDB
}

var _ accounts.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates a store over a database or transaction.
func NewArtifactStore(db bun.IDB) *ArtifactStore {
	return &ArtifactStore{db: db}
}

// FindActivationByKey implements accounts.ArtifactStore. Activation keys are
// only unique per account; the latest expiring match wins.
func (r *ArtifactStore) FindActivationByKey(ctx context.Context, key string) (*accounts.ActivationKey, error) {
	record := new(accounts.ActivationKey)
	err := r.db.NewSelect().
		Model(record).
		Where("activation_key = ?", key).
		Order("expires_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

// FindActivationByAccountID implements accounts.ArtifactStore.
func (r *ArtifactStore) FindActivationByAccountID(ctx context.Context, accountID uuid.UUID) (*accounts.ActivationKey, error) {
	record := new(accounts.ActivationKey)
	err := r.db.NewSelect().
		Model(record).
		Where("account_id = ?", accountID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

// SaveActivation implements accounts.ArtifactStore.
func (r *ArtifactStore) SaveActivation(ctx context.Context, artifact *accounts.ActivationKey) error {
	artifact.ExpiresAt = artifact.ExpiresAt.UTC()
	artifact.CreatedAt = artifact.CreatedAt.UTC()
	_, err := r.db.NewInsert().
		Model(artifact).
		On("CONFLICT (account_id) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("activation_key = EXCLUDED.activation_key").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

// DeleteActivation implements accounts.ArtifactStore.
func (r *ArtifactStore) DeleteActivation(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*accounts.ActivationKey)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteActivationByAccountID implements accounts.ArtifactStore.
func (r *ArtifactStore) DeleteActivationByAccountID(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*accounts.ActivationKey)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	return err
}

// FindResetByKey implements accounts.ArtifactStore.
func (r *ArtifactStore) FindResetByKey(ctx context.Context, key string) (*accounts.PasswordResetKey, error) {
	record := new(accounts.PasswordResetKey)
	err := r.db.NewSelect().
		Model(record).
		Where("reset_key = ?", key).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

// FindResetByAccountID implements accounts.ArtifactStore.
func (r *ArtifactStore) FindResetByAccountID(ctx context.Context, accountID uuid.UUID) (*accounts.PasswordResetKey, error) {
	record := new(accounts.PasswordResetKey)
	err := r.db.NewSelect().
		Model(record).
		Where("account_id = ?", accountID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

// SaveReset implements accounts.ArtifactStore.
func (r *ArtifactStore) SaveReset(ctx context.Context, artifact *accounts.PasswordResetKey) error {
	artifact.ExpiresAt = artifact.ExpiresAt.UTC()
	artifact.CreatedAt = artifact.CreatedAt.UTC()
	_, err := r.db.NewInsert().
		Model(artifact).
		On("CONFLICT (account_id) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("reset_key = EXCLUDED.reset_key").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

// DeleteReset implements accounts.ArtifactStore.
func (r *ArtifactStore) DeleteReset(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*accounts.PasswordResetKey)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteResetByAccountID implements accounts.ArtifactStore.
func (r *ArtifactStore) DeleteResetByAccountID(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*accounts.PasswordResetKey)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.ErrArtifactNotFound
	}
	return err
}
