package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fjod/go_shop/internal/repository"
)

// NewStore runs the migrations and bundles the repositories over db. The store owns db.
func NewStore(db *sql.DB, dialect Dialect) (*repository.Store, error) {
	if err := RunMigrations(db, dialect); err != nil {
		return nil, err
	}
	closer := func(context.Context) error {
		return db.Close()
	}
	return repository.NewStore(
		string(dialect),
		NewProductRepository(db),
		NewCartRepository(db),
		NewUserRepository(db),
		closer,
	), nil
}

// Connect opens the database for dialect and returns a migrated store.
func Connect(ctx context.Context, dialect Dialect, dsn string) (*repository.Store, error) {
	db, err := Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare %s store: %w", dialect, err)
	}
	return store, nil
}
