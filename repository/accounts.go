package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStore implements accounts.UserStore using Bun.
type AccountStore struct {
	db bun.IDB
}

var _ accounts.UserStore = (*AccountStore)(nil)

// NewAccountStore creates a store over a database or transaction.
func NewAccountStore(db bun.IDB) *AccountStore {
	return &AccountStore{db: db}
}

// ExistsByUsername implements accounts.UserStore.
func (r *AccountStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.db.NewSelect().
		Model((*accounts.Account)(nil)).
		Where("?TableAlias.username = ?", username).
		Exists(ctx)
}

// ExistsByEmail implements accounts.UserStore.
func (r *AccountStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.db.NewSelect().
		Model((*accounts.Account)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
}

// FindByID implements accounts.UserStore.
func (r *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	return r.findOne(ctx, "?TableAlias.id = ?", id)
}

// FindByUsername implements accounts.UserStore.
func (r *AccountStore) FindByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	return r.findOne(ctx, "?TableAlias.username = ?", username)
}

// FindByEmail implements accounts.UserStore.
func (r *AccountStore) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return r.findOne(ctx, "?TableAlias.email = ?", email)
}

// Create implements accounts.UserStore.
func (r *AccountStore) Create(ctx context.Context, account *accounts.Account) error {
	normalizeAccount(account)
	_, err := r.db.NewInsert().
		Model(account).
		Exec(ctx)
	return classifyWriteError(err)
}

// Update implements accounts.UserStore.
func (r *AccountStore) Update(ctx context.Context, account *accounts.Account) error {
	normalizeAccount(account)
	res, err := r.db.NewUpdate().
		Model(account).
		WherePK().
		Exec(ctx)
	if err != nil {
		return classifyWriteError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return accounts.ErrAccountNotFound
	}
	return nil
}

// Delete implements accounts.UserStore.
func (r *AccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*accounts.Account)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeletePending implements accounts.UserStore.
func (r *AccountStore) DeletePending(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*accounts.Account)(nil)).
		Where("id = ?", id).
		Where("activated = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List implements accounts.UserStore.
func (r *AccountStore) List(ctx context.Context, limit, offset int) ([]*accounts.Account, error) {
	records := []*accounts.Account{}
	q := r.db.NewSelect().
		Model(&records).
		Order("acc.created_at ASC", "acc.username ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	for _, a := range records {
		normalizeAccount(a)
	}
	return records, nil
}

// FindAbandonedPending implements accounts.UserStore.
func (r *AccountStore) FindAbandonedPending(ctx context.Context, olderThan time.Time) ([]*accounts.Account, error) {
	var records []*accounts.Account
	err := r.db.NewSelect().
		Model(&records).
		Join("LEFT JOIN activation_keys AS ak ON ak.account_id = acc.id").
		Where("acc.activated = ?", false).
		Where("COALESCE(ak.expires_at, acc.created_at) < ?", olderThan.UTC()).
		Order("acc.created_at ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*accounts.Account{}, nil
		}
		return nil, err
	}
	return records, nil
}

func (r *AccountStore) findOne(ctx context.Context, query string, arg any) (*accounts.Account, error) {
	record := new(accounts.Account)
	err := r.db.NewSelect().
		Model(record).
		Where(query, arg).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrAccountNotFound
		}
		return nil, err
	}
	return record, nil
}

func normalizeAccount(a *accounts.Account) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.LastModifiedAt = a.LastModifiedAt.UTC()
	if a.Roles == nil {
		a.Roles = []accounts.Role{}
	}
}
