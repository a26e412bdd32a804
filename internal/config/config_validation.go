package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// supportedAlgorithm is the only cipher identifier the key-wrapping core
// implements. The config value exists so a deployment pointing at a
// different algorithm fails at startup rather than producing undecryptable
// ciphertext.
const supportedAlgorithm = "aes-256-cbc"

// defaultLegacyCutover is the historical end of the old encryption system.
// Overridable because the exact date is a deployment detail of the
// migration, not part of the protocol.
var defaultLegacyCutover = time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)

func (c *StructuredConfig) applyDefaults() {
	if c.App.CipherAlgorithm == "" {
		c.App.CipherAlgorithm = supportedAlgorithm
	}
	if c.App.LegacyCutover.IsZero() {
		c.App.LegacyCutover = Date(defaultLegacyCutover)
	}
	if c.App.TokenDuration == 0 {
		c.App.TokenDuration = 24 * time.Hour
	}
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = "localhost:8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
}

// validate fails fast on anything the core cannot run without: the static
// double-encryption key, a supported cipher algorithm, token secrets, and a
// database to keep escrow records in.
func (c *StructuredConfig) validate() error {
	var errs []error

	key, err := hex.DecodeString(c.App.DoubleEncryptionKey)
	switch {
	case c.App.DoubleEncryptionKey == "":
		errs = append(errs, ErrNoDoubleEncryptionKey)
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: not valid hex", ErrBadDoubleEncryptionKey))
	case len(key) != 32:
		errs = append(errs, fmt.Errorf("%w: %d bytes, want 32", ErrBadDoubleEncryptionKey, len(key)))
	}

	if c.App.CipherAlgorithm != supportedAlgorithm {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, c.App.CipherAlgorithm))
	}

	if c.App.LegacyIV != "" && len(c.App.LegacyIV) != 16 {
		errs = append(errs, fmt.Errorf("%w: legacy IV is %d chars, want 16", ErrBadLegacyParams, len(c.App.LegacyIV)))
	}
	if (c.App.LegacySalt == "") != (c.App.LegacyIV == "") {
		errs = append(errs, fmt.Errorf("%w: legacy salt and IV must be set together", ErrBadLegacyParams))
	}

	if c.App.PasswordHashKey == "" {
		errs = append(errs, ErrNoPasswordHashKey)
	}
	if c.App.TokenSignKey == "" {
		errs = append(errs, ErrNoTokenSignKey)
	}
	if c.Storage.DB.DSN == "" {
		errs = append(errs, ErrNoDatabaseDSN)
	}

	return errors.Join(errs...)
}
