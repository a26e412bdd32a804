// SPDX-License-Identifier: Apache-2.0

package http

import "errors"

// Sentinel errors used by the authentication middleware when parsing the
// "Authorization" HTTP header. Callers can match against them with [errors.Is].
var (
	// ErrInvalidAuthorizationHeader is returned when the "Authorization"
	// header is present but cannot be split into at least two space-separated
	// parts (i.e. the token value is missing entirely).
	ErrInvalidAuthorizationHeader = errors.New("invalid `Authorization` header")

	// ErrEmptyToken is returned when the "Authorization" header contains the
	// expected scheme prefix but the token value itself is an empty string.
	ErrEmptyToken = errors.New("empty token in `Authorization` header")

	// ErrAuthorizationRequired is returned by /api/call dispatch when an
	// action that needs an authenticated identity is invoked anonymously.
	ErrAuthorizationRequired = errors.New("authorization required")

	// ErrUnknownAction is returned by /api/call dispatch for an action tag
	// it does not recognize.
	ErrUnknownAction = errors.New("unknown action")
)
