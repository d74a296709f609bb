// Package postgres implements the store contracts on top of gorm and PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"blogtalk/internal/logctx"
	"blogtalk/internal/store"

	"gorm.io/gorm"
)

// Store implements store.Store. The gorm handle must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type Store struct {
	db       *gorm.DB
	attempts int
}

var _ store.Store = (*Store)(nil)

// New wraps db. retryAttempts bounds how often a transaction that lost a
// unique-constraint race is re-run before store.ErrConflict is returned.
func New(db *gorm.DB, retryAttempts int) *Store {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Store{db: db, attempts: retryAttempts}
}

// inTx runs fn in a transaction and re-runs it when it fails on a unique
// constraint (numbering race, pin race, duplicate reaction insert).
func (s *Store) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		logctx.From(ctx).Debug("transaction lost a unique constraint race, retrying", "attempt", attempt)
	}
	return fmt.Errorf("%w: %v", store.ErrConflict, err)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
