package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Envelope byte layout (all lengths in hex characters):
//
//	handle   = outerIV(32) ‖ AES-CBC(base64(inner), doubleKey, outerIV) as hex
//	inner    = salt(64) ‖ innerIV(32) ‖ wrappedKey(var) ‖ kdfOutput(64)
//
// wrappedKey is the data key encrypted under kdfOutput/innerIV; kdfOutput is
// the hex of the KDF result that produced the wrap, carried along so the
// server never re-derives it from the secret on authenticated requests.
const (
	saltHexLen      = 2 * saltSize
	ivHexLen        = 2 * ivSize
	kdfOutputHexLen = 2 * saltSize // 32-byte key, hex encoded

	// innerMinHexLen is the smallest structurally valid inner record: all
	// fixed-width fields plus at least one cipher block of wrapped key.
	innerMinHexLen = saltHexLen + ivHexLen + kdfOutputHexLen + 2*ivSize
)

// Envelope is the decoded inner record of a client-held encryption handle.
// Field values are hex strings as they appear on the wire; Salt doubles as
// the KDF salt input (its ASCII bytes), so it is never hex-decoded.
//
// An envelope is a capability token, reissued on every successful unwrap,
// not a stored record. It carries no expiry: possession of a parseable
// handle is the proof of a prior successful authentication.
type Envelope struct {
	// Salt is the per-user salt (64 hex chars).
	Salt string

	// IV is the initialization vector of the inner wrap (32 hex chars).
	IV string

	// WrappedKey is the data key encrypted under KDFOutput/IV.
	WrappedKey string

	// KDFOutput is the hex form of the derived key that produced
	// WrappedKey (64 hex chars).
	KDFOutput string
}

// UnwrapDataKey recovers the plaintext data key from the envelope's own
// fields. Any failure is reported as the single classified envelope error.
func (e Envelope) UnwrapDataKey() (string, error) {
	key, err := mustDecodeHex(e.KDFOutput)
	if err != nil {
		return "", err
	}
	iv, err := mustDecodeHex(e.IV)
	if err != nil {
		return "", err
	}

	dataKey, err := Unwrap(e.WrappedKey, key, iv)
	if err != nil {
		return "", fmt.Errorf("%w: inner unwrap", ErrEncryptionDataNotValid)
	}

	return dataKey, nil
}

// EnvelopeCodec builds and parses client-held encryption handles. The
// process-wide double-encryption key is injected at construction and never
// read from ambient state inside Build/Parse.
type EnvelopeCodec struct {
	doubleKey []byte
}

// NewEnvelopeCodec validates and stores the static double-encryption key
// (hex, must decode to a 32-byte AES-256 key). Construction happens once at
// startup; an invalid key is a configuration error and fails fast.
func NewEnvelopeCodec(doubleEncryptionKeyHex string) (*EnvelopeCodec, error) {
	key, err := hex.DecodeString(doubleEncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("double encryption key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("double encryption key is %d bytes, want 32", len(key))
	}

	return &EnvelopeCodec{doubleKey: key}, nil
}

// Build serializes env into an opaque handle safe to cache on an untrusted
// client: the inner fields are concatenated, base64-encoded, and wrapped
// under the static key with a fresh outer IV.
func (c *EnvelopeCodec) Build(env Envelope) (string, error) {
	inner := env.Salt + env.IV + env.WrappedKey + env.KDFOutput
	obscured := base64.StdEncoding.EncodeToString([]byte(inner))

	outerIV, err := RandomIV()
	if err != nil {
		return "", fmt.Errorf("generate outer iv: %w", err)
	}
	ivBytes, err := hex.DecodeString(outerIV)
	if err != nil {
		return "", err
	}

	wrapped, err := Wrap(obscured, c.doubleKey, ivBytes)
	if err != nil {
		return "", fmt.Errorf("outer wrap: %w", err)
	}

	return outerIV + wrapped, nil
}

// Parse reverses Build with strict fixed-width slicing, sequentially:
// outer IV, outer unwrap, base64 decode, then salt / inner IV / wrapped key
// / KDF output in that order. Every structural mismatch — wrong lengths,
// non-hex content, cipher or padding failure — returns
// ErrEncryptionDataNotValid and never a partially populated envelope.
func (c *EnvelopeCodec) Parse(handle string) (Envelope, error) {
	if len(handle) <= ivHexLen {
		return Envelope{}, fmt.Errorf("%w: handle too short", ErrEncryptionDataNotValid)
	}

	outerIV, err := mustDecodeHex(handle[:ivHexLen])
	if err != nil {
		return Envelope{}, err
	}

	obscured, err := Unwrap(handle[ivHexLen:], c.doubleKey, outerIV)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: outer unwrap", ErrEncryptionDataNotValid)
	}

	innerBytes, err := base64.StdEncoding.DecodeString(obscured)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: inner encoding", ErrEncryptionDataNotValid)
	}

	inner := string(innerBytes)
	if len(inner) < innerMinHexLen {
		return Envelope{}, fmt.Errorf("%w: inner record too short", ErrEncryptionDataNotValid)
	}

	env := Envelope{
		Salt:       inner[:saltHexLen],
		IV:         inner[saltHexLen : saltHexLen+ivHexLen],
		WrappedKey: inner[saltHexLen+ivHexLen : len(inner)-kdfOutputHexLen],
		KDFOutput:  inner[len(inner)-kdfOutputHexLen:],
	}

	for _, field := range []string{env.Salt, env.IV, env.WrappedKey, env.KDFOutput} {
		if _, err := hex.DecodeString(field); err != nil {
			return Envelope{}, fmt.Errorf("%w: non-hex field", ErrEncryptionDataNotValid)
		}
	}

	return env, nil
}
