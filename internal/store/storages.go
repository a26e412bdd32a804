package store

import (
	"context"

	"github.com/ojin-app/keyguard/internal/config"
	"github.com/ojin-app/keyguard/internal/logger"
)

// Storages groups all server-side repositories into a single value consumed
// by the service layer.
type Storages struct {
	UserRepository    UserRepository
	ContactRepository ContactRepository
}

// NewStorages initialises the storage layer:
//  1. Opens the PostgreSQL connection and verifies it with a ping.
//  2. Applies all embedded migrations.
//  3. Constructs the repositories over the shared connection.
func NewStorages(ctx context.Context, cfg config.DB, logger *logger.Logger) (*Storages, error) {
	db, err := NewConnectPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		logger.Err(err).Str("func", "NewStorages").Msg("error applying migrations")
		return nil, err
	}

	return &Storages{
		UserRepository:    NewUserRepository(db, logger),
		ContactRepository: NewContactRepository(db, logger),
	}, nil
}
