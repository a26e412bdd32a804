package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/models"
)

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
// It handles account creation, lookup, and escrow-record mutation against
// the "users" table.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateUser persists a new user record and returns the fully populated
// [models.User] with server-assigned fields (UserID, CreatedAt).
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrEmailAlreadyExists].
//   - Any other driver-level error → wrapped as "unexpected DB error".
//   - Scan failure → returned directly.
func (r *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, createUser, user.UID, user.Email, user.Name, user.AuthHash)

	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: row is nil")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.User{}, ErrEmailAlreadyExists
		default:
			return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	if err := scanUser(row, &user); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: scanning error")
		return models.User{}, err
	}

	return user, nil
}

// FindUserByEmail retrieves the account whose email matches. The lookup is
// deliberately independent of any session identity: the unauthenticated
// escrow operations (recovery-code check, password change) key on the
// caller-claimed email and verify key material afterwards.
func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findUser(ctx, findUserByEmail, email)
}

// FindUserByID retrieves the account with the given internal identifier.
func (r *userRepository) FindUserByID(ctx context.Context, userID int64) (models.User, error) {
	return r.findUser(ctx, findUserByID, userID)
}

func (r *userRepository) findUser(ctx context.Context, query string, arg any) (models.User, error) {
	log := logger.FromContext(ctx)

	var foundUser models.User
	row := r.db.QueryRowContext(ctx, query, arg)

	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*userRepository.findUser").Msg("error: row is nil")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err := scanUser(row, &foundUser); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.findUser").Msg("error: scanning error")
		return models.User{}, err
	}

	return foundUser, nil
}

// UpdateEscrow overwrites escrow fields of one account in a single UPDATE.
// Passing both pointers replaces the password wrapping and the recovery
// wrapping in the same statement — the atomicity the consume-and-reissue
// operation relies on.
func (r *userRepository) UpdateEscrow(ctx context.Context, userID int64, encryptionKey, recoveryKey *string) error {
	log := logger.FromContext(ctx)

	var res sql.Result
	var err error

	switch {
	case encryptionKey != nil && recoveryKey != nil:
		res, err = r.db.ExecContext(ctx, updateEscrowBoth, *encryptionKey, *recoveryKey, userID)
	case encryptionKey != nil:
		res, err = r.db.ExecContext(ctx, updateEscrowPassword, *encryptionKey, userID)
	case recoveryKey != nil:
		res, err = r.db.ExecContext(ctx, updateEscrowRecovery, *recoveryKey, userID)
	default:
		return nil
	}

	if err != nil {
		log.Err(err).Str("func", "*userRepository.UpdateEscrow").Msg("error updating escrow record")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return checkAffected(res)
}

// InitEscrow writes the first escrow record of an account. The WHERE guard
// makes it idempotent under concurrent first logins.
func (r *userRepository) InitEscrow(ctx context.Context, userID int64, encryptionKey string, lastLogin time.Time) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, initEscrow, encryptionKey, lastLogin, userID)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.InitEscrow").Msg("error initializing escrow record")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return checkAffected(res)
}

// MigrateEscrow performs the one-shot legacy rewrap persist. The WHERE guard
// on the unmigrated condition is the mutual-exclusion signal between
// concurrent logins; the loser receives [ErrEscrowNotUpdated].
func (r *userRepository) MigrateEscrow(ctx context.Context, userID int64, encryptionKey string, lastLogin, cutover time.Time) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, migrateEscrow, encryptionKey, lastLogin, userID, cutover)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.MigrateEscrow").Msg("error migrating escrow record")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return checkAffected(res)
}

// TouchLastLogin stamps the account's last login time.
func (r *userRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, touchLastLogin, at, userID); err != nil {
		log.Err(err).Str("func", "*userRepository.TouchLastLogin").Msg("error updating last login date")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// scanUser reads one users row in canonical column order.
func scanUser(row *sql.Row, user *models.User) error {
	return row.Scan(
		&user.UserID,
		&user.UID,
		&user.Email,
		&user.Name,
		&user.AuthHash,
		&user.EncryptionKey,
		&user.EncryptionKeyRecoveryCode,
		&user.LastLoginDate,
		&user.CreatedAt,
	)
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrEscrowNotUpdated
	}

	return nil
}
