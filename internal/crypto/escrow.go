package crypto

import (
	"encoding/hex"
	"fmt"
)

// EscrowRecord is the decoded form of one server-stored escrow field:
// salt(64) ‖ iv(32) ‖ wrappedKey(var), all hex. Two such fields exist per
// account — one wrapped by the password-derived key, one by the
// recovery-code-derived key — and both recover the same data key.
type EscrowRecord struct {
	Salt       string
	IV         string
	WrappedKey string
}

// ParseEscrowField slices a stored escrow field into its fixed-width parts.
// Structural mismatches are classified the same way as envelope failures.
func ParseEscrowField(field string) (EscrowRecord, error) {
	if len(field) < saltHexLen+ivHexLen+2*ivSize {
		return EscrowRecord{}, fmt.Errorf("%w: escrow field too short", ErrEncryptionDataNotValid)
	}

	return EscrowRecord{
		Salt:       field[:saltHexLen],
		IV:         field[saltHexLen : saltHexLen+ivHexLen],
		WrappedKey: field[saltHexLen+ivHexLen:],
	}, nil
}

// Field returns the storable concatenation of the record.
func (r EscrowRecord) Field() string {
	return r.Salt + r.IV + r.WrappedKey
}

// Envelope pairs the record with the derived key that produced (or will
// unwrap) its WrappedKey, yielding the inner envelope handed to the codec.
func (r EscrowRecord) Envelope(key DerivedKey) Envelope {
	return Envelope{
		Salt:       r.Salt,
		IV:         r.IV,
		WrappedKey: r.WrappedKey,
		KDFOutput:  key.Hex,
	}
}

// WrapDataKey derives a key from secret and salt under the current profile
// and wraps dataKey with it under a fresh IV. It returns the storable record
// and the derived key, so callers can build an envelope without re-deriving.
func WrapDataKey(dataKey, secret, salt string) (EscrowRecord, DerivedKey, error) {
	key := Derive(secret, salt, ProfileCurrent)

	ivHex, err := RandomIV()
	if err != nil {
		return EscrowRecord{}, DerivedKey{}, fmt.Errorf("generate iv: %w", err)
	}
	iv, _ := hex.DecodeString(ivHex)

	wrapped, err := Wrap(dataKey, key.Bytes, iv)
	if err != nil {
		return EscrowRecord{}, DerivedKey{}, fmt.Errorf("wrap data key: %w", err)
	}

	return EscrowRecord{Salt: salt, IV: ivHex, WrappedKey: wrapped}, key, nil
}

// UnwrapWithSecret derives a key from secret and the record's own salt and
// recovers the plaintext data key. The derived key is returned alongside so
// a fresh envelope can be issued from the same material.
func (r EscrowRecord) UnwrapWithSecret(secret string) (string, DerivedKey, error) {
	key := Derive(secret, r.Salt, ProfileCurrent)

	iv, err := mustDecodeHex(r.IV)
	if err != nil {
		return "", DerivedKey{}, err
	}

	dataKey, err := Unwrap(r.WrappedKey, key.Bytes, iv)
	if err != nil {
		return "", DerivedKey{}, fmt.Errorf("%w: escrow unwrap", ErrEncryptionDataNotValid)
	}

	return dataKey, key, nil
}

// UnwrapLegacyEscrow recovers a data key from a pre-migration escrow field.
// The legacy format has no per-user salt or IV prefix: the whole field is
// ciphertext under the global-salt-derived key (its hex ASCII bytes) and the
// fixed legacy IV. Used exactly once per account, at migration time.
func UnwrapLegacyEscrow(field, secret string, legacy LegacyParams) (string, error) {
	if legacy.GlobalSalt == "" || legacy.IV == "" {
		return "", fmt.Errorf("%w: legacy parameters not configured", ErrEncryptionDataNotValid)
	}

	key := Derive(secret, legacy.GlobalSalt, ProfileLegacy)

	dataKey, err := Unwrap(field, key.LegacyKeyBytes(), []byte(legacy.IV))
	if err != nil {
		return "", fmt.Errorf("%w: legacy unwrap", ErrEncryptionDataNotValid)
	}

	return dataKey, nil
}
