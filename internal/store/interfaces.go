package store

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

import (
	"context"
	"time"

	"github.com/ojin-app/keyguard/models"
)

// UserRepository is the data-access contract for user accounts and their
// key-escrow records. Escrow mutations are single UPDATE statements so that
// the fields of one escrow change always land together.
type UserRepository interface {
	// CreateUser persists a new account (identity + credential hash, no
	// escrow yet) and returns the server-assigned fields.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// FindUserByEmail looks an account up by its email. Used by the
	// unauthenticated escrow operations, where no session identity
	// exists.
	FindUserByEmail(ctx context.Context, email string) (models.User, error)

	// FindUserByID looks an account up by its internal identifier.
	FindUserByID(ctx context.Context, userID int64) (models.User, error)

	// UpdateEscrow overwrites the given escrow fields of one account in a
	// single statement. Nil fields are left untouched; passing both
	// replaces the password wrapping and the recovery wrapping
	// atomically (the consume-and-reissue path).
	UpdateEscrow(ctx context.Context, userID int64, encryptionKey, recoveryKey *string) error

	// InitEscrow sets the first escrow record of an account, guarded by
	// "no escrow exists yet". Returns ErrEscrowNotUpdated when another
	// request won the initialization race.
	InitEscrow(ctx context.Context, userID int64, encryptionKey string, lastLogin time.Time) error

	// MigrateEscrow replaces a legacy escrow record with its re-wrapped
	// form and stamps the last login, guarded by "still unmigrated as of
	// cutover". Returns ErrEscrowNotUpdated when a concurrent login
	// already migrated the account.
	MigrateEscrow(ctx context.Context, userID int64, encryptionKey string, lastLogin, cutover time.Time) error

	// TouchLastLogin updates the last-login timestamp of an account.
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// ContactRepository is the data-access contract for encrypted contact
// records. Values in Name/Description are ciphertext by the time they reach
// this layer.
type ContactRepository interface {
	CreateContact(ctx context.Context, contact models.Contact) (models.Contact, error)
	GetContact(ctx context.Context, userID, contactID int64) (models.Contact, error)
	GetContacts(ctx context.Context, userID int64) ([]models.Contact, error)
	UpdateContact(ctx context.Context, update models.ContactUpdate) error
	DeleteContact(ctx context.Context, userID, contactID int64) error
}
