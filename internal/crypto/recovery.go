package crypto

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// Recovery codes are 16 alphanumeric characters formatted as 4 groups of 4
// separated by hyphens (19 characters total), e.g. "AB3D-k9Qw-77zZ-mP2x".
// One active code exists per account; it is consumed on use and reissued.

const (
	recoveryCodeCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	recoveryCodeGroups      = 4
	recoveryCodeGroupLength = 4
)

var recoveryCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{4}(?:-[A-Za-z0-9]{4}){3}$`)

// GenerateRecoveryCode produces a fresh recovery code from the OS CSPRNG.
// Returns an error only if the random source fails.
func GenerateRecoveryCode() (string, error) {
	charsetLen := big.NewInt(int64(len(recoveryCodeCharset)))

	var b strings.Builder
	for group := 0; group < recoveryCodeGroups; group++ {
		if group > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < recoveryCodeGroupLength; i++ {
			n, err := rand.Int(rand.Reader, charsetLen)
			if err != nil {
				return "", err
			}
			b.WriteByte(recoveryCodeCharset[n.Int64()])
		}
	}

	return b.String(), nil
}

// ValidRecoveryCodeFormat reports whether code has the 4×4 hyphen-separated
// shape. It says nothing about whether the code unwraps anything — that is
// the escrow's job.
func ValidRecoveryCodeFormat(code string) bool {
	return recoveryCodePattern.MatchString(code)
}
