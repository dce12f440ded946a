package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-accounts"
	"github.com/uptrace/bun"
)

// Manager implements accounts.RepositoryManager over a Bun database.
type Manager struct {
	db        *bun.DB
	users     *AccountStore
	artifacts *ArtifactStore
}

var _ accounts.RepositoryManager = (*Manager)(nil)

// NewRepositoryManager creates the stores bound to db.
func NewRepositoryManager(db *bun.DB) *Manager {
	return &Manager{
		db:        db,
		users:     NewAccountStore(db),
		artifacts: NewArtifactStore(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.artifacts == nil {
		return errors.New("repository artifacts should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx implements accounts.RepositoryManager.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx accounts.Stores) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
			return f(ctx, txStores{
				users:     NewAccountStore(tx),
				artifacts: NewArtifactStore(tx),
			})
		})
	}
}

func (m *Manager) Users() accounts.UserStore {
	return m.users
}

func (m *Manager) Artifacts() accounts.ArtifactStore {
	return m.artifacts
}

// DB returns the underlying database.
func (m *Manager) DB() *bun.DB {
	return m.db
}

type txStores struct {
	users     *AccountStore
	artifacts *ArtifactStore
}

func (t txStores) Users() accounts.UserStore {
	return t.users
}

func (t txStores) Artifacts() accounts.ArtifactStore {
	return t.artifacts
}
