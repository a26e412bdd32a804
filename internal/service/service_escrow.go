// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ojin-app/keyguard/internal/config"
	"github.com/ojin-app/keyguard/internal/crypto"
	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/store"
	"github.com/ojin-app/keyguard/models"
)

// escrowService owns the server side of the key-wrapping protocol: the
// migration gate evaluated on every login, the two independent unwrap paths
// (password envelope, recovery code), password change with the
// identity-binding check, and recovery code issue.
//
// No key material is cached across requests. Every operation re-derives or
// re-unwraps from the presented handle or stored escrow record and discards
// the result when the request ends.
type escrowService struct {
	userRepository store.UserRepository
	codec          *crypto.EnvelopeCodec

	// legacy holds the pre-migration derivation parameters. Consulted only
	// inside the migration path and the field-decrypt fallback.
	legacy crypto.LegacyParams

	// cutover is the date before which a last login marks an account as
	// still on the legacy system.
	cutover time.Time

	logger *logger.Logger
}

// NewEscrowService constructs an EscrowService over the given repository and
// envelope codec, with legacy parameters and cutover date taken from cfg.
func NewEscrowService(userRepository store.UserRepository, codec *crypto.EnvelopeCodec, cfg config.App, logger *logger.Logger) EscrowService {
	return &escrowService{
		userRepository: userRepository,
		codec:          codec,
		legacy: crypto.LegacyParams{
			GlobalSalt: cfg.LegacySalt,
			IV:         cfg.LegacyIV,
		},
		cutover: cfg.LegacyCutover.Time(),
		logger:  logger,
	}
}

// NewDataEncrypter builds the request-scoped field encrypter from a
// client-presented envelope handle. A malformed or forged handle yields an
// encrypter with Accepted() == false; callers branch on that instead of
// handling a construction error.
func (s *escrowService) NewDataEncrypter(handle string) *crypto.DataEncrypter {
	return crypto.NewDataEncrypter(s.codec, handle, s.legacy)
}

// InitUser is the login-time entry point of the migration gate. Exactly one
// of three paths runs, selected by the account's escrow state:
//
//   - first login: no escrow record exists yet; a fresh random data key and
//     per-user salt are generated and wrapped under the current profile;
//   - legacy: the stored record predates the cutover; the data key is
//     recovered via the legacy profile and immediately rewrapped under
//     current parameters with a new per-user salt, one-shot;
//   - current: the stored record is unwrapped with the current profile.
//
// The first two paths persist through guarded UPDATEs: a request that loses
// a concurrent race detects zero affected rows, re-reads the winner's record
// and falls back to the current path instead of double-wrapping. Whatever
// path ran, the caller receives a freshly built envelope.
func (s *escrowService) InitUser(ctx context.Context, userID int64, password models.HashedPassword) (models.InitUserResponse, error) {
	log := logger.FromContext(ctx)

	if password.Current == "" {
		return models.InitUserResponse{}, ErrMoreDataNeeded
	}

	user, err := s.userRepository.FindUserByID(ctx, userID)
	if err != nil {
		log.Err(err).Int64("id", userID).Msg("user lookup failed")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	now := time.Now()

	switch {
	case !user.HasEscrow():
		resp, err := s.initFirstLogin(ctx, user, password.Current, now)
		if !errors.Is(err, store.ErrEscrowNotUpdated) {
			return resp, err
		}
		// lost the initialization race: the winner's escrow is in place
		log.Info().Int64("id", userID).Msg("escrow already initialized by concurrent login")

	case s.isLegacy(user):
		resp, err := s.migrateLegacy(ctx, user, password, now)
		if !errors.Is(err, store.ErrEscrowNotUpdated) {
			return resp, err
		}
		log.Info().Int64("id", userID).Msg("escrow already migrated by concurrent login")

	default:
		return s.loginCurrent(ctx, user, password.Current, now)
	}

	// race loser: the already-loaded record is stale, re-read the winner's
	user, err = s.userRepository.FindUserByID(ctx, userID)
	if err != nil {
		log.Err(err).Int64("id", userID).Msg("user lookup failed")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	return s.loginCurrent(ctx, user, password.Current, now)
}

// initFirstLogin creates the account's data key and escrow record.
func (s *escrowService) initFirstLogin(ctx context.Context, user models.User, password string, now time.Time) (models.InitUserResponse, error) {
	log := logger.FromContext(ctx)

	dataKey, err := crypto.RandomDataKey()
	if err != nil {
		return models.InitUserResponse{}, fmt.Errorf("generate data key: %w", err)
	}
	salt, err := crypto.RandomSalt()
	if err != nil {
		return models.InitUserResponse{}, fmt.Errorf("generate salt: %w", err)
	}

	record, key, err := crypto.WrapDataKey(dataKey, password, salt)
	if err != nil {
		log.Err(err).Int64("id", user.UserID).Msg("escrow wrap failed")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	if err := s.userRepository.InitEscrow(ctx, user.UserID, record.Field(), now); err != nil {
		if !errors.Is(err, store.ErrEscrowNotUpdated) {
			log.Err(err).Int64("id", user.UserID).Msg("escrow init persist failed")
		}
		return models.InitUserResponse{}, err
	}

	handle, err := s.codec.Build(record.Envelope(key))
	if err != nil {
		return models.InitUserResponse{}, fmt.Errorf("build envelope: %w", err)
	}

	return models.InitUserResponse{
		EncryptionKey:   handle,
		Reencrypted:     models.No,
		HasRecoveryCode: models.YesNoOf(user.HasRecoveryCode()),
	}, nil
}

// migrateLegacy recovers the data key via the legacy profile and rewraps it
// under current parameters. Rewrap first, persist second: an interrupted
// migration leaves the old record untouched.
func (s *escrowService) migrateLegacy(ctx context.Context, user models.User, password models.HashedPassword, now time.Time) (models.InitUserResponse, error) {
	log := logger.FromContext(ctx)

	if password.Legacy == "" {
		return models.InitUserResponse{}, ErrMoreDataNeeded
	}

	dataKey, err := crypto.UnwrapLegacyEscrow(user.EncryptionKey, password.Legacy, s.legacy)
	if err != nil {
		log.Err(err).Int64("id", user.UserID).Msg("legacy escrow unwrap failed")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	salt, err := crypto.RandomSalt()
	if err != nil {
		return models.InitUserResponse{}, fmt.Errorf("generate salt: %w", err)
	}

	record, key, err := crypto.WrapDataKey(dataKey, password.Current, salt)
	if err != nil {
		log.Err(err).Int64("id", user.UserID).Msg("escrow rewrap failed")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	if err := s.userRepository.MigrateEscrow(ctx, user.UserID, record.Field(), now, s.cutover); err != nil {
		if !errors.Is(err, store.ErrEscrowNotUpdated) {
			log.Err(err).Int64("id", user.UserID).Msg("escrow migration persist failed")
		}
		return models.InitUserResponse{}, err
	}

	handle, err := s.codec.Build(record.Envelope(key))
	if err != nil {
		return models.InitUserResponse{}, fmt.Errorf("build envelope: %w", err)
	}

	return models.InitUserResponse{
		EncryptionKey:   handle,
		Reencrypted:     models.Yes,
		HasRecoveryCode: models.YesNoOf(user.HasRecoveryCode()),
	}, nil
}

// loginCurrent unwraps an already-current escrow record and reissues the
// envelope. The last-login stamp is bookkeeping; its failure does not undo
// an otherwise successful login.
func (s *escrowService) loginCurrent(ctx context.Context, user models.User, password string, now time.Time) (models.InitUserResponse, error) {
	log := logger.FromContext(ctx)

	record, err := crypto.ParseEscrowField(user.EncryptionKey)
	if err != nil {
		log.Err(err).Int64("id", user.UserID).Msg("stored escrow record is malformed")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	_, key, err := record.UnwrapWithSecret(password)
	if err != nil {
		log.Error().Int64("id", user.UserID).Msg("escrow unwrap rejected")
		return models.InitUserResponse{}, ErrAuthFailed
	}

	handle, err := s.codec.Build(record.Envelope(key))
	if err != nil {
		return models.InitUserResponse{}, fmt.Errorf("build envelope: %w", err)
	}

	if err := s.userRepository.TouchLastLogin(ctx, user.UserID, now); err != nil {
		log.Warn().Err(err).Int64("id", user.UserID).Msg("last login stamp failed")
	}

	return models.InitUserResponse{
		EncryptionKey:   handle,
		Reencrypted:     models.No,
		HasRecoveryCode: models.YesNoOf(user.HasRecoveryCode()),
	}, nil
}

// CheckRecoveryCode is the unauthenticated recovery unwrap path. The lookup
// is keyed by the caller-claimed email, and every failure — unknown account,
// no active code, malformed code, wrong code — collapses into the one
// generic rejection.
func (s *escrowService) CheckRecoveryCode(ctx context.Context, email, recoveryCode string) (models.CheckRecoveryCodeResponse, error) {
	log := logger.FromContext(ctx)

	if email == "" || recoveryCode == "" {
		return models.CheckRecoveryCodeResponse{}, ErrMoreDataNeeded
	}
	if !crypto.ValidRecoveryCodeFormat(recoveryCode) {
		return models.CheckRecoveryCodeResponse{}, ErrRecoveryCodeNotValid
	}

	user, err := s.userRepository.FindUserByEmail(ctx, email)
	if err != nil {
		log.Error().Str("email", email).Msg("recovery check for unknown account")
		return models.CheckRecoveryCodeResponse{}, ErrRecoveryCodeNotValid
	}
	if !user.HasRecoveryCode() {
		return models.CheckRecoveryCodeResponse{}, ErrRecoveryCodeNotValid
	}

	record, err := crypto.ParseEscrowField(user.EncryptionKeyRecoveryCode)
	if err != nil {
		return models.CheckRecoveryCodeResponse{}, ErrRecoveryCodeNotValid
	}

	_, key, err := record.UnwrapWithSecret(recoveryCode)
	if err != nil {
		log.Error().Int64("id", user.UserID).Msg("recovery escrow unwrap rejected")
		return models.CheckRecoveryCodeResponse{}, ErrRecoveryCodeNotValid
	}

	handle, err := s.codec.Build(record.Envelope(key))
	if err != nil {
		return models.CheckRecoveryCodeResponse{}, fmt.Errorf("build envelope: %w", err)
	}

	return models.CheckRecoveryCodeResponse{EncryptionKey: handle}, nil
}

// ChangePassword rewraps the claimed account's escrow under a new password.
//
// The identity-binding check runs before any mutation: the stored wrapped
// key of the claimed email is decrypted with the caller-supplied verifier
// and compared byte-for-byte against the data key recovered from the
// caller's own envelope. A caller presenting their own valid verifier but a
// different account's email fails that comparison.
//
// A recovery-code verifier is single-use: consumption and reissue land in
// the same UPDATE as the password rewrap, so no window exists where the old
// and new code both work.
func (s *escrowService) ChangePassword(ctx context.Context, handle, email, verifier string, verifierType models.VerifierType, newPassword string) (models.ChangePasswordResponse, error) {
	log := logger.FromContext(ctx)

	if email == "" || verifier == "" || newPassword == "" || !verifierType.Valid() {
		return models.ChangePasswordResponse{}, ErrMoreDataNeeded
	}

	enc := s.NewDataEncrypter(handle)
	if !enc.Accepted() {
		return models.ChangePasswordResponse{}, crypto.ErrEncryptionDataNotValid
	}

	user, err := s.userRepository.FindUserByEmail(ctx, email)
	if err != nil {
		log.Error().Str("email", email).Msg("password change for unknown account")
		return models.ChangePasswordResponse{}, ErrVerifierMismatch
	}

	field := user.EncryptionKey
	if verifierType == models.VerifierRecoveryCode {
		field = user.EncryptionKeyRecoveryCode
	}
	if field == "" {
		return models.ChangePasswordResponse{}, ErrVerifierMismatch
	}

	record, err := crypto.ParseEscrowField(field)
	if err != nil {
		return models.ChangePasswordResponse{}, ErrVerifierMismatch
	}

	dataKey, _, err := record.UnwrapWithSecret(verifier)
	if err != nil {
		log.Error().Int64("id", user.UserID).Msg("verifier rejected by escrow unwrap")
		return models.ChangePasswordResponse{}, ErrVerifierMismatch
	}

	if dataKey != enc.PlainDataKey() {
		log.Error().Int64("id", user.UserID).Msg("data key mismatch between verifier and envelope")
		return models.ChangePasswordResponse{}, ErrVerifierMismatch
	}

	newRecord, _, err := crypto.WrapDataKey(dataKey, newPassword, record.Salt)
	if err != nil {
		return models.ChangePasswordResponse{}, fmt.Errorf("rewrap escrow: %w", err)
	}
	passwordField := newRecord.Field()

	if verifierType != models.VerifierRecoveryCode {
		if err := s.userRepository.UpdateEscrow(ctx, user.UserID, &passwordField, nil); err != nil {
			log.Err(err).Int64("id", user.UserID).Msg("escrow rewrap persist failed")
			return models.ChangePasswordResponse{}, fmt.Errorf("persist escrow: %w", err)
		}

		return models.ChangePasswordResponse{PasswordChanged: true}, nil
	}

	code, err := crypto.GenerateRecoveryCode()
	if err != nil {
		return models.ChangePasswordResponse{}, fmt.Errorf("generate recovery code: %w", err)
	}

	recoveryRecord, _, err := crypto.WrapDataKey(dataKey, code, record.Salt)
	if err != nil {
		return models.ChangePasswordResponse{}, fmt.Errorf("rewrap recovery escrow: %w", err)
	}
	recoveryField := recoveryRecord.Field()

	// consume-and-reissue: both wrappings land in one statement
	if err := s.userRepository.UpdateEscrow(ctx, user.UserID, &passwordField, &recoveryField); err != nil {
		log.Err(err).Int64("id", user.UserID).Msg("escrow rewrap persist failed")
		return models.ChangePasswordResponse{}, fmt.Errorf("persist escrow: %w", err)
	}

	return models.ChangePasswordResponse{NewRecoveryCode: code}, nil
}

// GenerateRecoveryCode issues a fresh recovery code for an authenticated
// account and wraps the data key under it, replacing any previous code. The
// plaintext code is returned once and never persisted.
func (s *escrowService) GenerateRecoveryCode(ctx context.Context, userID int64, handle string) (models.GenerateRecoveryCodeResponse, error) {
	log := logger.FromContext(ctx)

	enc := s.NewDataEncrypter(handle)
	if !enc.Accepted() {
		return models.GenerateRecoveryCodeResponse{}, crypto.ErrEncryptionDataNotValid
	}

	code, err := crypto.GenerateRecoveryCode()
	if err != nil {
		return models.GenerateRecoveryCodeResponse{}, fmt.Errorf("generate recovery code: %w", err)
	}

	record, _, err := crypto.WrapDataKey(enc.PlainDataKey(), code, enc.Salt())
	if err != nil {
		return models.GenerateRecoveryCodeResponse{}, fmt.Errorf("wrap recovery escrow: %w", err)
	}
	recoveryField := record.Field()

	if err := s.userRepository.UpdateEscrow(ctx, userID, nil, &recoveryField); err != nil {
		log.Err(err).Int64("id", userID).Msg("recovery escrow persist failed")
		return models.GenerateRecoveryCodeResponse{}, fmt.Errorf("persist recovery escrow: %w", err)
	}

	return models.GenerateRecoveryCodeResponse{RecoveryCode: code}, nil
}

// CheckUserExistence reports whether an account exists for email.
func (s *escrowService) CheckUserExistence(ctx context.Context, email string) (models.CheckUserExistenceResponse, error) {
	if email == "" {
		return models.CheckUserExistenceResponse{}, ErrMoreDataNeeded
	}

	_, err := s.userRepository.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return models.CheckUserExistenceResponse{Exists: models.Yes}, nil
	case errors.Is(err, store.ErrNoUserWasFound):
		return models.CheckUserExistenceResponse{Exists: models.No}, nil
	default:
		return models.CheckUserExistenceResponse{}, fmt.Errorf("user lookup failed: %w", err)
	}
}

// isLegacy reports whether the account's escrow record still uses the
// pre-migration derivation parameters.
func (s *escrowService) isLegacy(user models.User) bool {
	return user.LastLoginDate == nil || user.LastLoginDate.Before(s.cutover)
}
