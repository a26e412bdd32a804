package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrWrongPassword       = errors.New("wrong password")

	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	// ErrMoreDataNeeded is the only specific rejection class: the caller
	// omitted a required field. Safe to be precise, it reveals API usage
	// only, never account state.
	ErrMoreDataNeeded = errors.New("more data needed")

	// ErrAuthFailed is the generic rejection for every unwrap failure on
	// the login path, including corrupted legacy records. One wording for
	// all causes, no oracle.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRecoveryCodeNotValid is the single rejection for the recovery
	// path: unknown email, no active code, wrong code and malformed code
	// all read the same to the caller.
	ErrRecoveryCodeNotValid = errors.New("recovery code is not valid")

	// ErrVerifierMismatch is the identity-binding rejection. Identical
	// wording whether the account does not exist, the verifier is wrong,
	// or the data keys do not match.
	ErrVerifierMismatch = errors.New("verifier does not match")
)
