// Package crypto implements the key-wrapping core: PBKDF2 key derivation
// under two coexisting parameter profiles, AES-CBC wrap/unwrap of key
// material, the double-wrapped client envelope codec, and the per-request
// DataEncrypter used for record-field encryption.
//
// Nothing in this package touches the network or the database. All state a
// function needs (secrets, salts, the process-wide double-encryption key,
// legacy parameters) is passed in explicitly.
package crypto

// Profile selects a key-derivation parameter set. Exactly two profiles
// coexist: the current one, used for every new wrap, and the legacy one,
// retained solely to unwrap escrow records written before the migration
// cutover. The profile is always an explicit argument — account state
// decides which one applies, not call-site conditionals.
type Profile int

const (
	// ProfileCurrent is PBKDF2-HMAC-SHA512, 21000 iterations, 32-byte
	// output, per-user random salt. Sized for AES-256.
	ProfileCurrent Profile = iota

	// ProfileLegacy is the pre-migration parameter set:
	// PBKDF2-HMAC-SHA512, 8 iterations, 16-byte output, one global salt
	// shared by all accounts. Never used to create new escrow records.
	ProfileLegacy
)

// profileParams holds the tunable PBKDF2 inputs of a profile. The digest is
// SHA-512 for both profiles.
type profileParams struct {
	iterations int
	keyLen     int
}

func (p Profile) params() profileParams {
	switch p {
	case ProfileLegacy:
		return profileParams{iterations: 8, keyLen: 16}
	default:
		return profileParams{iterations: 21000, keyLen: 32}
	}
}

// LegacyParams carries the fixed inputs of the legacy cipher configuration,
// injected from process configuration. GlobalSalt feeds the legacy KDF; IV
// is the fixed initialization vector the old system used for every field
// ciphertext. Both are interpreted as raw ASCII bytes, matching the wire
// format of pre-migration data.
type LegacyParams struct {
	GlobalSalt string
	IV         string
}
