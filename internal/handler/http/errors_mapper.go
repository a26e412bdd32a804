package http

import (
	"errors"
	"net/http"

	"github.com/ojin-app/keyguard/internal/crypto"
	"github.com/ojin-app/keyguard/internal/service"
	"github.com/ojin-app/keyguard/internal/store"
)

// errorStatusMap translates the sentinel errors crossing the service
// boundary into HTTP status codes. Security-sensitive rejections
// (auth failure, verifier mismatch, recovery code, malformed envelope) keep
// their deliberately generic messages; everything unmapped is a 500.
var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrMoreDataNeeded:          http.StatusBadRequest,
	service.ErrWrongPassword:           http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrAuthFailed:              http.StatusUnauthorized,
	service.ErrRecoveryCodeNotValid:    http.StatusUnauthorized,
	service.ErrVerifierMismatch:        http.StatusUnauthorized,

	crypto.ErrEncryptionDataNotValid: http.StatusBadRequest,
	crypto.ErrKeyNotAccepted:         http.StatusBadRequest,
	crypto.ErrDecryptionFailed:       http.StatusInternalServerError,

	store.ErrEmailAlreadyExists: http.StatusConflict,
	store.ErrNoUserWasFound:     http.StatusNotFound,
	store.ErrContactNotFound:    http.StatusNotFound,

	ErrAuthorizationRequired: http.StatusUnauthorized,
	ErrUnknownAction:         http.StatusBadRequest,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// callError is the public message for an /api/call failure. Mapped sentinel
// errors carry caller-safe wording already; anything else is replaced by the
// bare status text so internal detail never leaks.
func callError(err error, status int) string {
	for target := range errorStatusMap {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return http.StatusText(status)
}
