package config

import "errors"

// Validation errors reported at startup. All of them are fatal: the service
// must not come up with a partially configured key-wrapping core.
var (
	ErrNoDoubleEncryptionKey  = errors.New("double encryption key is not configured")
	ErrBadDoubleEncryptionKey = errors.New("double encryption key is not usable")
	ErrUnsupportedAlgorithm   = errors.New("unsupported cipher algorithm")
	ErrBadLegacyParams        = errors.New("legacy cipher parameters are not usable")
	ErrNoPasswordHashKey      = errors.New("password hash key is not configured")
	ErrNoTokenSignKey         = errors.New("token sign key is not configured")
	ErrNoDatabaseDSN          = errors.New("database DSN is not configured")
)
