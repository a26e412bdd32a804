package models

// ServerAction is the tag that selects which operation a /api/call request
// performs. The API surface is a single RPC-style endpoint; dispatch happens
// on this value.
type ServerAction string

const (
	ActionInitUser             ServerAction = "initUser"
	ActionCheckUserExistence   ServerAction = "checkUserExistence"
	ActionCheckRecoveryCode    ServerAction = "checkRecoveryCode"
	ActionChangePassword       ServerAction = "changePassword"
	ActionGenerateRecoveryCode ServerAction = "generateRecoveryCode"
	ActionCreateContact        ServerAction = "createContact"
	ActionGetContact           ServerAction = "getContact"
	ActionGetContacts          ServerAction = "getContacts"
	ActionUpdateContact        ServerAction = "updateContact"
	ActionDeleteContact        ServerAction = "deleteContact"
	ActionCheckVersion         ServerAction = "checkVersion"
)

// VerifierType names the secret a caller presents to authorize a password
// change: the old password or a recovery code. The escrow field that gets
// decrypted during the identity-binding check depends on it.
type VerifierType string

const (
	VerifierOldPassword  VerifierType = "OldPassword"
	VerifierRecoveryCode VerifierType = "RecoveryCode"
)

// Valid reports whether v is one of the known verifier types.
func (v VerifierType) Valid() bool {
	return v == VerifierOldPassword || v == VerifierRecoveryCode
}

// HashedPassword carries the client-hashed password for both derivation
// profiles. Legacy is only consulted when the migration gate decides the
// account still uses the old encryption system.
type HashedPassword struct {
	// Current is the hash used with the current derivation profile.
	Current string `json:"newSystem"`

	// Legacy is the hash the pre-migration system derived keys from.
	// Empty for accounts registered on the current system.
	Legacy string `json:"oldSystem"`
}

// CallRequest is the payload of the single /api/call endpoint. Which fields
// are required depends on Action; shape checks happen at the handler boundary
// so services receive already-validated arguments.
type CallRequest struct {
	// Action selects the operation.
	Action ServerAction `json:"action"`

	// EncryptionKey is the client-cached envelope (opaque double-wrapped
	// data key). Required by actions that construct a DataEncrypter.
	EncryptionKey string `json:"encryptionKey,omitempty"`

	// HashedPassword is required by initUser.
	HashedPassword HashedPassword `json:"hashedUserPassword,omitzero"`

	// Email identifies the account for unauthenticated escrow operations
	// (checkRecoveryCode, changePassword) and for initUser bookkeeping.
	Email string `json:"email,omitempty"`

	// Name is the display name supplied at initUser time.
	Name string `json:"name,omitempty"`

	// RecoveryCode is the human-typed code for checkRecoveryCode.
	RecoveryCode string `json:"recoveryCode,omitempty"`

	// Verifier is the secret authorizing a password change (old password
	// hash or recovery code, per VerifierType).
	Verifier string `json:"verifier,omitempty"`

	// VerifierType tags the Verifier field. The JSON name preserves the
	// original wire spelling.
	VerifierType VerifierType `json:"verifirerType,omitempty"`

	// NewPassword is the client-hashed replacement password for
	// changePassword.
	NewPassword string `json:"newPassword,omitempty"`

	// Contact carries the payload of contact CRUD actions.
	Contact *Contact `json:"contact,omitempty"`

	// ContactID identifies the target of getContact/updateContact/
	// deleteContact.
	ContactID int64 `json:"contactId,omitempty"`
}
