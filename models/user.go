package models

import "time"

// User represents an account entity together with its key-escrow record.
// It contains identity attributes, credential data, and the two independent
// wrappings of the account's data key.
// Sensitive fields must never be exposed outside trusted boundaries.
type User struct {
	// UserID is the internal unique identifier of the user.
	// It is not exposed via JSON and is used only at the persistence layer.
	UserID int64 `json:"-"`

	// UID is the public, stable identifier of the account (UUID string).
	// Escrow mutations that may run unauthenticated are keyed by email,
	// everything else by UID or UserID.
	UID string `json:"uid"`

	// Email is the unique login identifier of the account.
	Email string `json:"email"`

	// Name is the display name of the user. Non-sensitive.
	Name string `json:"name"`

	// AuthHash stores the server-side credential check value.
	// This value MUST be a derived value (HMAC of the client-hashed
	// password), never plaintext. Used only for authentication.
	AuthHash string `json:"auth_hash,omitempty"`

	// EncryptionKey is the password-wrapped escrow field:
	// saltHex(64) ‖ ivHex(32) ‖ wrappedDataKeyHex.
	// Opaque ciphertext; safe to persist, never returned to clients as-is.
	EncryptionKey string `json:"-"`

	// EncryptionKeyRecoveryCode is the recovery-code-wrapped escrow field,
	// same layout as EncryptionKey. Empty until a recovery code is issued.
	EncryptionKeyRecoveryCode string `json:"-"`

	// LastLoginDate is nil for accounts that have never completed a login
	// on the current encryption system. Together with the configured
	// cutover date it selects the key-derivation profile for the account.
	LastLoginDate *time.Time `json:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}

// HasRecoveryCode reports whether an active recovery-code wrapping exists
// for the account.
func (u User) HasRecoveryCode() bool {
	return u.EncryptionKeyRecoveryCode != ""
}

// HasEscrow reports whether any escrow record has been created for the
// account yet. A user row without escrow is in the first-login state.
func (u User) HasEscrow() bool {
	return u.EncryptionKey != ""
}
