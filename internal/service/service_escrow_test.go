// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ojin-app/keyguard/internal/config"
	"github.com/ojin-app/keyguard/internal/crypto"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/mock"
	"github.com/ojin-app/keyguard/internal/store"
	"github.com/ojin-app/keyguard/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testLegacySalt = "legacy-global-salt"
	testLegacyIV   = "0123456789abcdef"
)

var testCutover = time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

// newTestEscrowService builds an escrowService over a mocked repository and
// a real envelope codec.
func newTestEscrowService(t *testing.T, ctrl *gomock.Controller) (*escrowService, *mock.MockUserRepository) {
	t.Helper()

	repo := mock.NewMockUserRepository(ctrl)

	codec, err := crypto.NewEnvelopeCodec(strings.Repeat("ab", 32))
	require.NoError(t, err)

	cfg := config.App{
		LegacySalt:    testLegacySalt,
		LegacyIV:      testLegacyIV,
		LegacyCutover: config.Date(testCutover),
	}

	return NewEscrowService(repo, codec, cfg, logger.Nop()).(*escrowService), repo
}

// currentEscrowUser returns a user whose escrow record is already on the
// current profile, together with the plaintext data key it protects.
func currentEscrowUser(t *testing.T, svc *escrowService, userID int64, password string) (models.User, string) {
	t.Helper()

	dataKey, err := crypto.RandomDataKey()
	require.NoError(t, err)
	salt, err := crypto.RandomSalt()
	require.NoError(t, err)

	record, _, err := crypto.WrapDataKey(dataKey, password, salt)
	require.NoError(t, err)

	lastLogin := svc.cutover.Add(24 * time.Hour)

	return models.User{
		UserID:        userID,
		Email:         "user@example.com",
		EncryptionKey: record.Field(),
		LastLoginDate: &lastLogin,
	}, dataKey
}

// handleFor reissues an envelope for the user's stored escrow record, the
// way a successful login would.
func handleFor(t *testing.T, svc *escrowService, user models.User, password string) string {
	t.Helper()

	record, err := crypto.ParseEscrowField(user.EncryptionKey)
	require.NoError(t, err)
	_, key, err := record.UnwrapWithSecret(password)
	require.NoError(t, err)

	handle, err := svc.codec.Build(record.Envelope(key))
	require.NoError(t, err)
	return handle
}

// unwrapHandle parses a returned envelope handle down to its data key.
func unwrapHandle(t *testing.T, svc *escrowService, handle string) string {
	t.Helper()

	env, err := svc.codec.Parse(handle)
	require.NoError(t, err)
	dataKey, err := env.UnwrapDataKey()
	require.NoError(t, err)
	return dataKey
}

// ── InitUser: first login ────────────────────────────────────────────────────

func TestEscrowService_InitUser_FirstLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user := models.User{UserID: 1, Email: "new@example.com"}

	var savedField string
	repo.EXPECT().FindUserByID(ctx, int64(1)).Return(user, nil)
	repo.EXPECT().InitEscrow(ctx, int64(1), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, field string, _ time.Time) error {
			savedField = field
			return nil
		},
	)

	resp, err := svc.InitUser(ctx, 1, models.HashedPassword{Current: "hashed-password"})
	require.NoError(t, err)

	assert.Equal(t, models.No, resp.Reencrypted)
	assert.Equal(t, models.No, resp.HasRecoveryCode)
	require.NotEmpty(t, resp.EncryptionKey)

	// the handle and the persisted escrow record protect the same data key
	dataKey := unwrapHandle(t, svc, resp.EncryptionKey)

	record, err := crypto.ParseEscrowField(savedField)
	require.NoError(t, err)
	stored, _, err := record.UnwrapWithSecret("hashed-password")
	require.NoError(t, err)
	assert.Equal(t, dataKey, stored)
}

func TestEscrowService_InitUser_FirstLoginLostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	winner, winnerDataKey := currentEscrowUser(t, svc, 1, "hashed-password")

	repo.EXPECT().FindUserByID(ctx, int64(1)).Return(models.User{UserID: 1}, nil)
	repo.EXPECT().InitEscrow(ctx, int64(1), gomock.Any(), gomock.Any()).Return(store.ErrEscrowNotUpdated)
	repo.EXPECT().FindUserByID(ctx, int64(1)).Return(winner, nil)
	repo.EXPECT().TouchLastLogin(ctx, int64(1), gomock.Any()).Return(nil)

	resp, err := svc.InitUser(ctx, 1, models.HashedPassword{Current: "hashed-password"})
	require.NoError(t, err)

	// the loser must end up with the winner's key, not a second one
	assert.Equal(t, models.No, resp.Reencrypted)
	assert.Equal(t, winnerDataKey, unwrapHandle(t, svc, resp.EncryptionKey))
}

func TestEscrowService_InitUser_EmptyPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newTestEscrowService(t, ctrl)

	_, err := svc.InitUser(context.Background(), 1, models.HashedPassword{})
	assert.ErrorIs(t, err, ErrMoreDataNeeded)
}

// ── InitUser: legacy migration ───────────────────────────────────────────────

// legacyEscrowUser returns a user whose stored field was written by the old
// system: bare ciphertext under the global-salt-derived key and fixed IV.
func legacyEscrowUser(t *testing.T, userID int64, legacyPassword string) (models.User, string) {
	t.Helper()

	dataKey, err := crypto.RandomDataKey()
	require.NoError(t, err)

	key := crypto.Derive(legacyPassword, testLegacySalt, crypto.ProfileLegacy)
	field, err := crypto.Wrap(dataKey, key.LegacyKeyBytes(), []byte(testLegacyIV))
	require.NoError(t, err)

	return models.User{
		UserID:        userID,
		Email:         "old@example.com",
		EncryptionKey: field,
		LastLoginDate: nil, // never logged in on the current system
	}, dataKey
}

func TestEscrowService_InitUser_LegacyMigration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := legacyEscrowUser(t, 2, "legacy-hash")

	var migratedField string
	repo.EXPECT().FindUserByID(ctx, int64(2)).Return(user, nil)
	repo.EXPECT().MigrateEscrow(ctx, int64(2), gomock.Any(), gomock.Any(), svc.cutover).DoAndReturn(
		func(_ context.Context, _ int64, field string, _, _ time.Time) error {
			migratedField = field
			return nil
		},
	)

	password := models.HashedPassword{Current: "current-hash", Legacy: "legacy-hash"}
	resp, err := svc.InitUser(ctx, 2, password)
	require.NoError(t, err)

	assert.Equal(t, models.Yes, resp.Reencrypted)
	assert.Equal(t, dataKey, unwrapHandle(t, svc, resp.EncryptionKey))

	// rewrapped record carries the same key under current parameters
	record, err := crypto.ParseEscrowField(migratedField)
	require.NoError(t, err)
	migrated, _, err := record.UnwrapWithSecret("current-hash")
	require.NoError(t, err)
	assert.Equal(t, dataKey, migrated)
}

func TestEscrowService_InitUser_LegacyMigrationLostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	legacyUser, _ := legacyEscrowUser(t, 2, "legacy-hash")
	winner, winnerDataKey := currentEscrowUser(t, svc, 2, "current-hash")

	repo.EXPECT().FindUserByID(ctx, int64(2)).Return(legacyUser, nil)
	repo.EXPECT().MigrateEscrow(ctx, int64(2), gomock.Any(), gomock.Any(), svc.cutover).Return(store.ErrEscrowNotUpdated)
	repo.EXPECT().FindUserByID(ctx, int64(2)).Return(winner, nil)
	repo.EXPECT().TouchLastLogin(ctx, int64(2), gomock.Any()).Return(nil)

	password := models.HashedPassword{Current: "current-hash", Legacy: "legacy-hash"}
	resp, err := svc.InitUser(ctx, 2, password)
	require.NoError(t, err)

	assert.Equal(t, models.No, resp.Reencrypted)
	assert.Equal(t, winnerDataKey, unwrapHandle(t, svc, resp.EncryptionKey))
}

// After migration the legacy parameters are never consulted again: a second
// login succeeds with the current password alone even when the legacy global
// salt has since been corrupted.
func TestEscrowService_InitUser_MigrationIsOneShot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := legacyEscrowUser(t, 4, "legacy-hash")

	var migratedField string
	var migratedAt time.Time
	repo.EXPECT().FindUserByID(ctx, int64(4)).Return(user, nil)
	repo.EXPECT().MigrateEscrow(ctx, int64(4), gomock.Any(), gomock.Any(), svc.cutover).DoAndReturn(
		func(_ context.Context, _ int64, field string, loginDate, _ time.Time) error {
			migratedField = field
			migratedAt = loginDate
			return nil
		},
	)

	password := models.HashedPassword{Current: "current-hash", Legacy: "legacy-hash"}
	resp, err := svc.InitUser(ctx, 4, password)
	require.NoError(t, err)
	require.Equal(t, models.Yes, resp.Reencrypted)

	svc.legacy.GlobalSalt = "corrupted-since-migration"

	migrated := user
	migrated.EncryptionKey = migratedField
	migrated.LastLoginDate = &migratedAt

	repo.EXPECT().FindUserByID(ctx, int64(4)).Return(migrated, nil)
	repo.EXPECT().TouchLastLogin(ctx, int64(4), gomock.Any()).Return(nil)

	resp, err = svc.InitUser(ctx, 4, models.HashedPassword{Current: "current-hash"})
	require.NoError(t, err)
	assert.Equal(t, models.No, resp.Reencrypted)
	assert.Equal(t, dataKey, unwrapHandle(t, svc, resp.EncryptionKey))
}

func TestEscrowService_InitUser_LegacyMissingOldHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, _ := legacyEscrowUser(t, 2, "legacy-hash")
	repo.EXPECT().FindUserByID(ctx, int64(2)).Return(user, nil)

	_, err := svc.InitUser(ctx, 2, models.HashedPassword{Current: "current-hash"})
	assert.ErrorIs(t, err, ErrMoreDataNeeded)
}

func TestEscrowService_InitUser_LegacyWrongOldHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, _ := legacyEscrowUser(t, 2, "legacy-hash")
	repo.EXPECT().FindUserByID(ctx, int64(2)).Return(user, nil)

	password := models.HashedPassword{Current: "current-hash", Legacy: "not-the-hash"}
	_, err := svc.InitUser(ctx, 2, password)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

// ── InitUser: current path ───────────────────────────────────────────────────

func TestEscrowService_InitUser_CurrentLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 3, "hashed-password")
	user.EncryptionKeyRecoveryCode = "non-empty-recovery-field"

	repo.EXPECT().FindUserByID(ctx, int64(3)).Return(user, nil)
	repo.EXPECT().TouchLastLogin(ctx, int64(3), gomock.Any()).Return(nil)

	resp, err := svc.InitUser(ctx, 3, models.HashedPassword{Current: "hashed-password"})
	require.NoError(t, err)

	assert.Equal(t, models.No, resp.Reencrypted)
	assert.Equal(t, models.Yes, resp.HasRecoveryCode)
	assert.Equal(t, dataKey, unwrapHandle(t, svc, resp.EncryptionKey))
}

func TestEscrowService_InitUser_CurrentLoginWrongPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, _ := currentEscrowUser(t, svc, 3, "hashed-password")
	repo.EXPECT().FindUserByID(ctx, int64(3)).Return(user, nil)

	_, err := svc.InitUser(ctx, 3, models.HashedPassword{Current: "wrong-password"})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestEscrowService_InitUser_LastLoginStampFailureIsNonFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 3, "hashed-password")
	repo.EXPECT().FindUserByID(ctx, int64(3)).Return(user, nil)
	repo.EXPECT().TouchLastLogin(ctx, int64(3), gomock.Any()).Return(errors.New("db gone"))

	resp, err := svc.InitUser(ctx, 3, models.HashedPassword{Current: "hashed-password"})
	require.NoError(t, err)
	assert.Equal(t, dataKey, unwrapHandle(t, svc, resp.EncryptionKey))
}

// ── CheckRecoveryCode ────────────────────────────────────────────────────────

const testRecoveryCode = "AB3D-k9Qw-77zZ-mP2x"

// recoveryEscrowUser adds a recovery-code wrapping of dataKey to user.
func withRecoveryEscrow(t *testing.T, user models.User, dataKey, code string) models.User {
	t.Helper()

	salt, err := crypto.RandomSalt()
	require.NoError(t, err)
	record, _, err := crypto.WrapDataKey(dataKey, code, salt)
	require.NoError(t, err)

	user.EncryptionKeyRecoveryCode = record.Field()
	return user
}

func TestEscrowService_CheckRecoveryCode_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 4, "hashed-password")
	user = withRecoveryEscrow(t, user, dataKey, testRecoveryCode)

	repo.EXPECT().FindUserByEmail(ctx, user.Email).Return(user, nil)

	resp, err := svc.CheckRecoveryCode(ctx, user.Email, testRecoveryCode)
	require.NoError(t, err)
	assert.Equal(t, dataKey, unwrapHandle(t, svc, resp.EncryptionKey))
}

func TestEscrowService_CheckRecoveryCode_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 4, "hashed-password")
	user = withRecoveryEscrow(t, user, dataKey, testRecoveryCode)

	t.Run("malformed code", func(t *testing.T) {
		_, err := svc.CheckRecoveryCode(ctx, user.Email, "AB3D-k9Qw-77zZ")
		assert.ErrorIs(t, err, ErrRecoveryCodeNotValid)
	})

	t.Run("unknown account", func(t *testing.T) {
		repo.EXPECT().FindUserByEmail(ctx, "ghost@example.com").Return(models.User{}, store.ErrNoUserWasFound)

		_, err := svc.CheckRecoveryCode(ctx, "ghost@example.com", testRecoveryCode)
		assert.ErrorIs(t, err, ErrRecoveryCodeNotValid)
	})

	t.Run("no active code", func(t *testing.T) {
		bare, _ := currentEscrowUser(t, svc, 5, "hashed-password")
		repo.EXPECT().FindUserByEmail(ctx, bare.Email).Return(bare, nil)

		_, err := svc.CheckRecoveryCode(ctx, bare.Email, testRecoveryCode)
		assert.ErrorIs(t, err, ErrRecoveryCodeNotValid)
	})

	t.Run("wrong code", func(t *testing.T) {
		repo.EXPECT().FindUserByEmail(ctx, user.Email).Return(user, nil)

		_, err := svc.CheckRecoveryCode(ctx, user.Email, "xxxx-yyyy-zzzz-0000")
		assert.ErrorIs(t, err, ErrRecoveryCodeNotValid)
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := svc.CheckRecoveryCode(ctx, "", testRecoveryCode)
		assert.ErrorIs(t, err, ErrMoreDataNeeded)
	})
}

// ── ChangePassword ───────────────────────────────────────────────────────────

func TestEscrowService_ChangePassword_WithOldPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 6, "old-password")
	handle := handleFor(t, svc, user, "old-password")

	var savedField string
	repo.EXPECT().FindUserByEmail(ctx, user.Email).Return(user, nil)
	repo.EXPECT().UpdateEscrow(ctx, int64(6), gomock.Any(), nil).DoAndReturn(
		func(_ context.Context, _ int64, encryptionKey, _ *string) error {
			require.NotNil(t, encryptionKey)
			savedField = *encryptionKey
			return nil
		},
	)

	resp, err := svc.ChangePassword(ctx, handle, user.Email, "old-password", models.VerifierOldPassword, "new-password")
	require.NoError(t, err)

	assert.True(t, resp.PasswordChanged)
	assert.Empty(t, resp.NewRecoveryCode)

	record, err := crypto.ParseEscrowField(savedField)
	require.NoError(t, err)
	rewrapped, _, err := record.UnwrapWithSecret("new-password")
	require.NoError(t, err)
	assert.Equal(t, dataKey, rewrapped)
}

func TestEscrowService_ChangePassword_WithRecoveryCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 7, "forgotten-password")
	user = withRecoveryEscrow(t, user, dataKey, testRecoveryCode)

	// the caller's envelope came from a successful checkRecoveryCode
	recoveryRecord, err := crypto.ParseEscrowField(user.EncryptionKeyRecoveryCode)
	require.NoError(t, err)
	_, key, err := recoveryRecord.UnwrapWithSecret(testRecoveryCode)
	require.NoError(t, err)
	handle, err := svc.codec.Build(recoveryRecord.Envelope(key))
	require.NoError(t, err)

	var passwordField, recoveryField string
	repo.EXPECT().FindUserByEmail(ctx, user.Email).Return(user, nil)
	repo.EXPECT().UpdateEscrow(ctx, int64(7), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, encryptionKey, recoveryKey *string) error {
			// consume and reissue must land in a single update
			require.NotNil(t, encryptionKey)
			require.NotNil(t, recoveryKey)
			passwordField = *encryptionKey
			recoveryField = *recoveryKey
			return nil
		},
	)

	resp, err := svc.ChangePassword(ctx, handle, user.Email, testRecoveryCode, models.VerifierRecoveryCode, "new-password")
	require.NoError(t, err)

	assert.False(t, resp.PasswordChanged)
	require.True(t, crypto.ValidRecoveryCodeFormat(resp.NewRecoveryCode))
	assert.NotEqual(t, testRecoveryCode, resp.NewRecoveryCode)

	record, err := crypto.ParseEscrowField(passwordField)
	require.NoError(t, err)
	fromPassword, _, err := record.UnwrapWithSecret("new-password")
	require.NoError(t, err)
	assert.Equal(t, dataKey, fromPassword)

	record, err = crypto.ParseEscrowField(recoveryField)
	require.NoError(t, err)
	fromRecovery, _, err := record.UnwrapWithSecret(resp.NewRecoveryCode)
	require.NoError(t, err)
	assert.Equal(t, dataKey, fromRecovery)
}

// A valid envelope for one account must not authorize a password change on
// another, even when the verifier itself checks out.
func TestEscrowService_ChangePassword_ForeignEnvelopeRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	victim, _ := currentEscrowUser(t, svc, 8, "victim-password")

	attacker, _ := currentEscrowUser(t, svc, 9, "attacker-password")
	attackerHandle := handleFor(t, svc, attacker, "attacker-password")

	repo.EXPECT().FindUserByEmail(ctx, victim.Email).Return(victim, nil)

	_, err := svc.ChangePassword(ctx, attackerHandle, victim.Email, "victim-password", models.VerifierOldPassword, "new-password")
	assert.ErrorIs(t, err, ErrVerifierMismatch)
}

func TestEscrowService_ChangePassword_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, _ := currentEscrowUser(t, svc, 10, "old-password")
	handle := handleFor(t, svc, user, "old-password")

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.ChangePassword(ctx, handle, user.Email, "", models.VerifierOldPassword, "new-password")
		assert.ErrorIs(t, err, ErrMoreDataNeeded)
	})

	t.Run("unknown verifier type", func(t *testing.T) {
		_, err := svc.ChangePassword(ctx, handle, user.Email, "old-password", "Hunch", "new-password")
		assert.ErrorIs(t, err, ErrMoreDataNeeded)
	})

	t.Run("bad envelope", func(t *testing.T) {
		_, err := svc.ChangePassword(ctx, "garbage", user.Email, "old-password", models.VerifierOldPassword, "new-password")
		assert.ErrorIs(t, err, crypto.ErrEncryptionDataNotValid)
	})

	t.Run("unknown account", func(t *testing.T) {
		repo.EXPECT().FindUserByEmail(ctx, "ghost@example.com").Return(models.User{}, store.ErrNoUserWasFound)

		_, err := svc.ChangePassword(ctx, handle, "ghost@example.com", "old-password", models.VerifierOldPassword, "new-password")
		assert.ErrorIs(t, err, ErrVerifierMismatch)
	})

	t.Run("wrong verifier", func(t *testing.T) {
		repo.EXPECT().FindUserByEmail(ctx, user.Email).Return(user, nil)

		_, err := svc.ChangePassword(ctx, handle, user.Email, "not-the-password", models.VerifierOldPassword, "new-password")
		assert.ErrorIs(t, err, ErrVerifierMismatch)
	})

	t.Run("recovery verifier without active code", func(t *testing.T) {
		repo.EXPECT().FindUserByEmail(ctx, user.Email).Return(user, nil)

		_, err := svc.ChangePassword(ctx, handle, user.Email, testRecoveryCode, models.VerifierRecoveryCode, "new-password")
		assert.ErrorIs(t, err, ErrVerifierMismatch)
	})
}

// ── GenerateRecoveryCode ─────────────────────────────────────────────────────

func TestEscrowService_GenerateRecoveryCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	user, dataKey := currentEscrowUser(t, svc, 11, "hashed-password")
	handle := handleFor(t, svc, user, "hashed-password")

	var savedField string
	repo.EXPECT().UpdateEscrow(ctx, int64(11), nil, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, _, recoveryKey *string) error {
			require.NotNil(t, recoveryKey)
			savedField = *recoveryKey
			return nil
		},
	)

	resp, err := svc.GenerateRecoveryCode(ctx, 11, handle)
	require.NoError(t, err)
	require.True(t, crypto.ValidRecoveryCodeFormat(resp.RecoveryCode))

	// the new wrapping recovers the account's existing data key
	record, err := crypto.ParseEscrowField(savedField)
	require.NoError(t, err)
	got, _, err := record.UnwrapWithSecret(resp.RecoveryCode)
	require.NoError(t, err)
	assert.Equal(t, dataKey, got)
}

func TestEscrowService_GenerateRecoveryCode_BadEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newTestEscrowService(t, ctrl)

	_, err := svc.GenerateRecoveryCode(context.Background(), 11, "garbage")
	assert.ErrorIs(t, err, crypto.ErrEncryptionDataNotValid)
}

// ── CheckUserExistence ───────────────────────────────────────────────────────

func TestEscrowService_CheckUserExistence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, repo := newTestEscrowService(t, ctrl)
	ctx := context.Background()

	repo.EXPECT().FindUserByEmail(ctx, "present@example.com").Return(models.User{UserID: 1}, nil)
	resp, err := svc.CheckUserExistence(ctx, "present@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.Yes, resp.Exists)

	repo.EXPECT().FindUserByEmail(ctx, "absent@example.com").Return(models.User{}, store.ErrNoUserWasFound)
	resp, err = svc.CheckUserExistence(ctx, "absent@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.No, resp.Exists)

	repo.EXPECT().FindUserByEmail(ctx, "broken@example.com").Return(models.User{}, errors.New("connection refused"))
	_, err = svc.CheckUserExistence(ctx, "broken@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNoUserWasFound)

	_, err = svc.CheckUserExistence(ctx, "")
	assert.ErrorIs(t, err, ErrMoreDataNeeded)
}
