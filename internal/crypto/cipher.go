package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Block cipher framing used throughout the escrow and envelope formats:
// AES-CBC with an externally supplied IV, PKCS#7 padding, hex-encoded
// ciphertext. The mode carries no authentication tag — tampering surfaces
// as a padding or structural failure at unwrap time, which the envelope
// codec collapses into ErrEncryptionDataNotValid. Matches the wire format
// of all historical ciphertext, so it cannot be swapped for an AEAD without
// re-encrypting every record.

const (
	// ivSize is the AES block size; every IV is 16 random bytes.
	ivSize = 16

	// saltSize is the per-user salt length in bytes. At least the KDF
	// output length, per the derivation contract.
	saltSize = 32

	// dataKeySize is the length of the plaintext data key in bytes.
	dataKeySize = 32
)

// Wrap encrypts plaintext under key/iv and returns the ciphertext as a hex
// string. The IV must be 16 bytes and freshly random for every wrap; the
// only place a fixed IV appears is unwrapping data written by the legacy
// system.
func Wrap(plaintext string, key, iv []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("wrap: iv length %d, want %d", len(iv), block.BlockSize())
	}

	padded := pkcs7Pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(out), nil
}

// Unwrap reverses Wrap: hex-decodes cipherHex and decrypts it under key/iv.
// A wrong key or IV surfaces as a padding or decode failure; callers must
// treat any error as "decryption failed" without inspecting further.
func Unwrap(cipherHex string, key, iv []byte) (string, error) {
	raw, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("unwrap: iv length %d, want %d", len(iv), block.BlockSize())
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", errors.New("unwrap: ciphertext is not a whole number of blocks")
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)

	unpadded, err := pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

// RandomIV reads 16 random bytes from the OS CSPRNG and returns them
// hex-encoded (32 chars), ready to prepend to a ciphertext.
func RandomIV() (string, error) {
	return randomHex(ivSize)
}

// RandomSalt generates a fresh per-user salt (32 bytes, 64 hex chars).
// Generated once at registration or at migration time.
func RandomSalt() (string, error) {
	return randomHex(saltSize)
}

// RandomDataKey generates a new plaintext data key (32 bytes, 64 hex
// chars). Exactly one data key exists per account for its lifetime; this is
// called only on first login.
func RandomDataKey() (string, error) {
	return randomHex(dataKeySize)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding")
		}
	}

	return data[:len(data)-padLen], nil
}
