package crypto

import (
	"encoding/hex"
	"fmt"
)

// DataEncrypter is the request-scoped object that encrypts and decrypts
// record fields for one user. It is constructed from a client-presented
// envelope handle, lives for the duration of a single request, and is then
// discarded — no derived key is ever cached across requests.
//
// Construction never fails: a malformed or forged handle produces an
// encrypter with Accepted() == false, so the request pipeline can branch
// without crashing. Every operation on a rejected encrypter returns
// ErrKeyNotAccepted.
type DataEncrypter struct {
	env          Envelope
	plainDataKey string

	// fieldKey is the record-field encryption key, derived from the
	// plaintext data key and the per-user salt under the current profile.
	fieldKey []byte

	// legacyFieldKey and legacyIV decrypt field ciphertext written by the
	// pre-migration system. Zero-valued when no legacy configuration is
	// supplied.
	legacyFieldKey []byte
	legacyIV       []byte

	accepted bool
}

// NewDataEncrypter parses the handle with codec and prepares the field keys.
// The legacy parameters come from process configuration and are only used as
// a decrypt fallback for pre-migration ciphertext.
func NewDataEncrypter(codec *EnvelopeCodec, handle string, legacy LegacyParams) *DataEncrypter {
	env, err := codec.Parse(handle)
	if err != nil {
		return &DataEncrypter{}
	}

	dataKey, err := env.UnwrapDataKey()
	if err != nil {
		return &DataEncrypter{}
	}

	d := &DataEncrypter{
		env:          env,
		plainDataKey: dataKey,
		fieldKey:     Derive(dataKey, env.Salt, ProfileCurrent).Bytes,
		accepted:     true,
	}

	if legacy.GlobalSalt != "" && legacy.IV != "" {
		d.legacyFieldKey = Derive(dataKey, legacy.GlobalSalt, ProfileLegacy).LegacyKeyBytes()
		d.legacyIV = []byte(legacy.IV)
	}

	return d
}

// Accepted reports whether the presented envelope decoded to a usable data
// key. Callers must check it before trusting any other accessor.
func (d *DataEncrypter) Accepted() bool {
	return d.accepted
}

// PlainDataKey returns the recovered plaintext data key. Empty when the
// envelope was rejected.
func (d *DataEncrypter) PlainDataKey() string {
	return d.plainDataKey
}

// Salt returns the per-user salt carried by the accepted envelope.
func (d *DataEncrypter) Salt() string {
	return d.env.Salt
}

// IV returns the inner-wrap IV carried by the accepted envelope.
func (d *DataEncrypter) IV() string {
	return d.env.IV
}

// EncryptField encrypts one string-valued record field. The output is
// self-describing: ivHex(32) ‖ cipherHex, no external metadata needed.
func (d *DataEncrypter) EncryptField(plaintext string) (string, error) {
	if !d.accepted {
		return "", ErrKeyNotAccepted
	}

	ivHex, err := RandomIV()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	iv, _ := hex.DecodeString(ivHex)

	cipherHex, err := Wrap(plaintext, d.fieldKey, iv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return ivHex + cipherHex, nil
}

// DecryptField decrypts a field produced by EncryptField. Ciphertext written
// by the legacy system carries no IV prefix and uses the fixed legacy
// key/IV, so a failed current-format decrypt falls back to the legacy
// configuration before giving up.
func (d *DataEncrypter) DecryptField(data string) (string, error) {
	if !d.accepted {
		return "", ErrKeyNotAccepted
	}

	if len(data) > ivHexLen {
		if iv, err := hex.DecodeString(data[:ivHexLen]); err == nil {
			if plaintext, err := Unwrap(data[ivHexLen:], d.fieldKey, iv); err == nil {
				return plaintext, nil
			}
		}
	}

	return d.decryptFieldLegacy(data)
}

func (d *DataEncrypter) decryptFieldLegacy(data string) (string, error) {
	if d.legacyFieldKey == nil {
		return "", ErrDecryptionFailed
	}

	plaintext, err := Unwrap(data, d.legacyFieldKey, d.legacyIV)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return plaintext, nil
}
