package crypto

import "errors"

// Sentinel errors of the key-wrapping core. Every cryptographic failure is
// collapsed into one of these classes before it leaves the package, so that
// callers can branch with [errors.Is] without learning which byte offset or
// cipher step failed (no oracle leakage).
var (
	// ErrEncryptionDataNotValid is returned whenever a client-presented
	// envelope cannot be decoded: wrong lengths, non-hex content, cipher
	// or padding failure. One class for all structural failures.
	ErrEncryptionDataNotValid = errors.New("encryption data not valid")

	// ErrKeyNotAccepted is returned by encrypt/decrypt calls on a
	// DataEncrypter whose envelope was rejected at construction time.
	// Operations on a rejected encrypter never silently run on an
	// empty key.
	ErrKeyNotAccepted = errors.New("encryption key was not accepted")

	// ErrDecryptionFailed is returned when a well-formed field ciphertext
	// cannot be decrypted under either the current or the legacy cipher
	// configuration.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrEncryptionFailed is returned when field encryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)
