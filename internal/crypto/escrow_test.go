package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestWrapDataKey_UnwrapWithSecret_RoundTrip(t *testing.T) {
	dataKey, err := RandomDataKey()
	if err != nil {
		t.Fatalf("RandomDataKey: %v", err)
	}
	salt, err := RandomSalt()
	if err != nil {
		t.Fatalf("RandomSalt: %v", err)
	}

	record, key, err := WrapDataKey(dataKey, "user-password", salt)
	if err != nil {
		t.Fatalf("WrapDataKey: %v", err)
	}
	if record.Salt != salt {
		t.Fatalf("record salt = %q, want %q", record.Salt, salt)
	}
	if len(record.IV) != 32 {
		t.Fatalf("record iv hex length = %d, want 32", len(record.IV))
	}

	got, gotKey, err := record.UnwrapWithSecret("user-password")
	if err != nil {
		t.Fatalf("UnwrapWithSecret: %v", err)
	}
	if got != dataKey {
		t.Fatal("unwrapped data key differs from the one wrapped")
	}
	if gotKey.Hex != key.Hex {
		t.Fatal("derived keys must match between wrap and unwrap")
	}
}

func TestUnwrapWithSecret_WrongSecret(t *testing.T) {
	dataKey, _ := RandomDataKey()
	salt, _ := RandomSalt()

	record, _, err := WrapDataKey(dataKey, "user-password", salt)
	if err != nil {
		t.Fatalf("WrapDataKey: %v", err)
	}

	_, _, err = record.UnwrapWithSecret("not-the-password")
	if !errors.Is(err, ErrEncryptionDataNotValid) {
		t.Fatalf("expected ErrEncryptionDataNotValid, got %v", err)
	}
}

// The same data key wrapped under the password and under the recovery code
// must recover identically through either field.
func TestEscrow_DualPathEquivalence(t *testing.T) {
	dataKey, _ := RandomDataKey()
	salt, _ := RandomSalt()

	byPassword, _, err := WrapDataKey(dataKey, "user-password", salt)
	if err != nil {
		t.Fatalf("wrap by password: %v", err)
	}
	byRecovery, _, err := WrapDataKey(dataKey, "AB3D-k9Qw-77zZ-mP2x", salt)
	if err != nil {
		t.Fatalf("wrap by recovery code: %v", err)
	}

	fromPassword, _, err := byPassword.UnwrapWithSecret("user-password")
	if err != nil {
		t.Fatalf("unwrap by password: %v", err)
	}
	fromRecovery, _, err := byRecovery.UnwrapWithSecret("AB3D-k9Qw-77zZ-mP2x")
	if err != nil {
		t.Fatalf("unwrap by recovery code: %v", err)
	}

	if fromPassword != fromRecovery {
		t.Fatal("both escrow paths must recover the same data key")
	}
}

func TestParseEscrowField_RoundTrip(t *testing.T) {
	dataKey, _ := RandomDataKey()
	salt, _ := RandomSalt()

	record, _, err := WrapDataKey(dataKey, "secret", salt)
	if err != nil {
		t.Fatalf("WrapDataKey: %v", err)
	}

	parsed, err := ParseEscrowField(record.Field())
	if err != nil {
		t.Fatalf("ParseEscrowField: %v", err)
	}
	if parsed != record {
		t.Fatalf("parsed record differs from original\nwant: %+v\ngot:  %+v", record, parsed)
	}
}

func TestParseEscrowField_TooShort(t *testing.T) {
	for _, field := range []string{"", "abcdef", strings.Repeat("a", 64+32)} {
		if _, err := ParseEscrowField(field); !errors.Is(err, ErrEncryptionDataNotValid) {
			t.Errorf("field %q: expected ErrEncryptionDataNotValid, got %v", field, err)
		}
	}
}

func TestUnwrapLegacyEscrow(t *testing.T) {
	legacy := LegacyParams{
		GlobalSalt: "legacy-global-salt",
		IV:         "0123456789abcdef", // 16 ASCII chars, consumed as raw bytes
	}

	dataKey, _ := RandomDataKey()

	// write a field exactly the way the old system did: whole field is
	// ciphertext, no salt or IV prefix
	key := Derive("legacy-password-hash", legacy.GlobalSalt, ProfileLegacy)
	field, err := Wrap(dataKey, key.LegacyKeyBytes(), []byte(legacy.IV))
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	got, err := UnwrapLegacyEscrow(field, "legacy-password-hash", legacy)
	if err != nil {
		t.Fatalf("UnwrapLegacyEscrow: %v", err)
	}
	if got != dataKey {
		t.Fatal("legacy unwrap must recover the original data key")
	}

	if _, err := UnwrapLegacyEscrow(field, "wrong-secret", legacy); !errors.Is(err, ErrEncryptionDataNotValid) {
		t.Fatalf("wrong secret: expected ErrEncryptionDataNotValid, got %v", err)
	}

	if _, err := UnwrapLegacyEscrow(field, "legacy-password-hash", LegacyParams{}); !errors.Is(err, ErrEncryptionDataNotValid) {
		t.Fatalf("missing legacy params: expected ErrEncryptionDataNotValid, got %v", err)
	}
}

func TestEscrowRecord_Envelope(t *testing.T) {
	dataKey, _ := RandomDataKey()
	salt, _ := RandomSalt()

	record, key, err := WrapDataKey(dataKey, "secret", salt)
	if err != nil {
		t.Fatalf("WrapDataKey: %v", err)
	}

	env := record.Envelope(key)
	if env.Salt != record.Salt || env.IV != record.IV || env.WrappedKey != record.WrappedKey {
		t.Fatal("envelope must carry the record fields unchanged")
	}
	if env.KDFOutput != hex.EncodeToString(key.Bytes) {
		t.Fatal("envelope KDF output must be the hex form of the derived key")
	}

	got, err := env.UnwrapDataKey()
	if err != nil {
		t.Fatalf("UnwrapDataKey: %v", err)
	}
	if got != dataKey {
		t.Fatal("envelope must unwrap to the original data key")
	}
}
