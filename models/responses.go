package models

// YesNo is the string-boolean used by the mobile client's preference store.
// Kept on the wire for compatibility instead of a JSON bool.
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

// YesNoOf converts a Go bool to its wire representation.
func YesNoOf(b bool) YesNo {
	if b {
		return Yes
	}
	return No
}

// InitUserResponse is returned by the initUser action after the migration
// gate ran and a fresh envelope was issued.
type InitUserResponse struct {
	// EncryptionKey is the freshly built envelope the client caches and
	// attaches to every subsequent authenticated request.
	EncryptionKey string `json:"encryptionKey"`

	// Reencrypted is Yes when this login performed the one-shot migration
	// from the legacy encryption system.
	Reencrypted YesNo `json:"reencrypted"`

	// HasRecoveryCode tells the client whether to prompt the user to
	// generate a recovery code.
	HasRecoveryCode YesNo `json:"hasRecoveryCode"`
}

// CheckRecoveryCodeResponse is returned when a recovery code successfully
// unwrapped the escrowed data key. The envelope proves possession of the
// code to the subsequent changePassword call.
type CheckRecoveryCodeResponse struct {
	EncryptionKey string `json:"encryptionKey"`
}

// ChangePasswordResponse reports the outcome of a password change. Exactly
// one of the fields is set: NewRecoveryCode when the consumed verifier was a
// recovery code (single use, reissued atomically), PasswordChanged otherwise.
type ChangePasswordResponse struct {
	NewRecoveryCode string `json:"newRecoveryCode,omitempty"`
	PasswordChanged bool   `json:"passwordChanged,omitempty"`
}

// GenerateRecoveryCodeResponse carries a newly issued recovery code. The
// code is shown to the user once and never persisted in plaintext.
type GenerateRecoveryCodeResponse struct {
	RecoveryCode string `json:"recoveryCode"`
}

// CheckUserExistenceResponse reports whether an account exists for the
// authenticated identity.
type CheckUserExistenceResponse struct {
	Exists YesNo `json:"exists"`
}

// VersionResponse is returned by the checkVersion action.
type VersionResponse struct {
	Version string `json:"version"`
}

// CallResponse is the uniform wrapper of /api/call results, mirroring the
// original callable-function contract: Code 200 with an answer, or an error
// message with a non-200 code.
type CallResponse struct {
	Code   int    `json:"code"`
	Answer any    `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}
