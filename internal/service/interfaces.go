package service

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

import (
	"context"

	"github.com/ojin-app/keyguard/internal/crypto"
	"github.com/ojin-app/keyguard/models"
)

type AuthService interface {
	RegisterUser(ctx context.Context, user models.User) (models.User, error)
	Login(ctx context.Context, user models.User) (models.User, error)
	CreateToken(ctx context.Context, user models.User) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// EscrowService owns the key-wrapping lifecycle: envelope issue on login,
// legacy migration, the dual unwrap paths, and password change with the
// identity-binding check.
type EscrowService interface {
	// InitUser runs the per-account migration gate for an authenticated
	// login and returns a fresh envelope.
	InitUser(ctx context.Context, userID int64, password models.HashedPassword) (models.InitUserResponse, error)

	// CheckRecoveryCode unwraps the recovery escrow of the account behind
	// email. Unauthenticated; every failure is ErrRecoveryCodeNotValid.
	CheckRecoveryCode(ctx context.Context, email, recoveryCode string) (models.CheckRecoveryCodeResponse, error)

	// ChangePassword rewraps the escrow under newPassword after the
	// identity-binding check passed. A recovery-code verifier is consumed
	// and reissued in the same persist.
	ChangePassword(ctx context.Context, handle, email, verifier string, verifierType models.VerifierType, newPassword string) (models.ChangePasswordResponse, error)

	// GenerateRecoveryCode issues a new recovery code for an account that
	// presented an accepted envelope, replacing any previous code.
	GenerateRecoveryCode(ctx context.Context, userID int64, handle string) (models.GenerateRecoveryCodeResponse, error)

	// CheckUserExistence reports whether an account exists for email.
	CheckUserExistence(ctx context.Context, email string) (models.CheckUserExistenceResponse, error)

	// NewDataEncrypter builds the request-scoped field encrypter from a
	// client-presented envelope handle.
	NewDataEncrypter(handle string) *crypto.DataEncrypter
}

// ContactService is the record-field-encryption consumer: contact names and
// descriptions are ciphertext at rest, plaintext on the wire.
type ContactService interface {
	CreateContact(ctx context.Context, enc *crypto.DataEncrypter, contact models.Contact) (models.Contact, error)
	GetContact(ctx context.Context, enc *crypto.DataEncrypter, userID, contactID int64) (models.Contact, error)
	GetContacts(ctx context.Context, enc *crypto.DataEncrypter, userID int64) ([]models.Contact, error)
	UpdateContact(ctx context.Context, enc *crypto.DataEncrypter, update models.ContactUpdate) error
	DeleteContact(ctx context.Context, userID, contactID int64) error
}
