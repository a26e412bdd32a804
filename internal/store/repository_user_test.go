package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/models"
)

var userColumns = []string{
	"user_id", "uid", "email", "name", "auth_hash",
	"encryption_key", "encryption_key_recovery_code", "last_login_date", "created_at",
}

func newTestUserRepo(t *testing.T) (*userRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &userRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	user := models.User{
		UID:      "uid-1",
		Email:    "john@example.com",
		Name:     "John",
		AuthHash: "hash",
	}

	now := time.Now()
	rows := sqlmock.
		NewRows(userColumns).
		AddRow(1, user.UID, user.Email, user.Name, user.AuthHash, "", "", nil, now)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(user.UID, user.Email, user.Name, user.AuthHash).
		WillReturnRows(rows)

	created, err := repo.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.UserID != 1 {
		t.Errorf("expected UserID=1, got %d", created.UserID)
	}
	if created.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, created.Email)
	}
	if created.HasEscrow() {
		t.Error("fresh account should have no escrow record")
	}
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	user := models.User{Email: "john@example.com"}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	_, err := repo.CreateUser(ctx, user)
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestCreateUser_UnexpectedDBError(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	user := models.User{Email: "john@example.com"}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("db network error"))

	_, err := repo.CreateUser(ctx, user)
	if err == nil || !strings.Contains(err.Error(), "unexpected DB error") {
		t.Fatalf("expected wrapped unexpected DB error, got %v", err)
	}
}

func TestCreateUser_ScanError(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	user := models.User{Email: "john@example.com"}

	rows := sqlmock.
		NewRows([]string{"user_id"}). // intentionally wrong shape → scan error
		AddRow(1)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(rows)

	_, err := repo.CreateUser(ctx, user)
	if err == nil {
		t.Fatal("expected scan error, got nil")
	}
}

func TestFindUserByEmail_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()

	now := time.Now()
	rows := sqlmock.
		NewRows(userColumns).
		AddRow(1, "uid-1", "john@example.com", "John", "hash", "escrow", "recovery-escrow", now, now)

	mock.ExpectQuery("SELECT user_id").
		WithArgs("john@example.com").
		WillReturnRows(rows)

	found, err := repo.FindUserByEmail(ctx, "john@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Email != "john@example.com" {
		t.Errorf("expected email john@example.com, got %s", found.Email)
	}
	if !found.HasEscrow() || !found.HasRecoveryCode() {
		t.Error("expected populated escrow fields")
	}
	if found.LastLoginDate == nil {
		t.Error("expected last login date to be scanned")
	}
}

func TestFindUserByEmail_NotFound(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery("SELECT user_id").
		WithArgs("john@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindUserByEmail(ctx, "john@example.com")
	if !errors.Is(err, ErrNoUserWasFound) {
		t.Fatalf("expected ErrNoUserWasFound, got %v", err)
	}
}

func TestFindUserByID_UnexpectedError(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery("SELECT user_id").
		WithArgs(int64(1)).
		WillReturnError(errors.New("db failure"))

	_, err := repo.FindUserByID(ctx, 1)
	if err == nil || !strings.Contains(err.Error(), "unexpected DB error") {
		t.Fatalf("expected wrapped unexpected DB error, got %v", err)
	}
}

func TestInitEscrow_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec("UPDATE users").
		WithArgs("escrow-field", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.InitEscrow(ctx, 1, "escrow-field", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitEscrow_LostRace(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	// zero affected rows: another request already created the escrow record
	mock.ExpectExec("UPDATE users").
		WithArgs("escrow-field", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.InitEscrow(ctx, 1, "escrow-field", now)
	if !errors.Is(err, ErrEscrowNotUpdated) {
		t.Fatalf("expected ErrEscrowNotUpdated, got %v", err)
	}
}

func TestMigrateEscrow_LostRace(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()
	cutover := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE users").
		WithArgs("rewrapped", now, int64(1), cutover).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MigrateEscrow(ctx, 1, "rewrapped", now, cutover)
	if !errors.Is(err, ErrEscrowNotUpdated) {
		t.Fatalf("expected ErrEscrowNotUpdated, got %v", err)
	}
}

func TestMigrateEscrow_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()
	cutover := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE users").
		WithArgs("rewrapped", now, int64(1), cutover).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MigrateEscrow(ctx, 1, "rewrapped", now, cutover); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateEscrow_BothFieldsSingleStatement(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	passwordWrap := "new-password-escrow"
	recoveryWrap := "new-recovery-escrow"

	mock.ExpectExec("UPDATE users").
		WithArgs(passwordWrap, recoveryWrap, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateEscrow(ctx, 1, &passwordWrap, &recoveryWrap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("both escrow fields must land in one UPDATE: %v", err)
	}
}

func TestUpdateEscrow_PasswordOnly(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	passwordWrap := "new-password-escrow"

	mock.ExpectExec("UPDATE users").
		WithArgs(passwordWrap, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateEscrow(ctx, 1, &passwordWrap, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateEscrow_NothingToDo(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	if err := repo.UpdateEscrow(context.Background(), 1, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement expected: %v", err)
	}
}

func TestTouchLastLogin(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec("UPDATE users").
		WithArgs(now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.TouchLastLogin(ctx, 1, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
