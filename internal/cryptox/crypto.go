// Package cryptox implements the salted password hash used to store and
// verify account credentials.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// argon2id parameters. Changing any of them invalidates every stored hash.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32

	SaltSize = 32
)

// NewSalt returns a fresh random salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives the stored hash for password under salt.
// Same inputs always give the same output.
func HashPassword(salt, password []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// CheckPassword recomputes the hash of candidate and compares it with
// hash in constant time.
func CheckPassword(hash, salt, candidate []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(hash, HashPassword(salt, candidate)) == 1
}

// SessionMarker fingerprints a login of accountID. It is auxiliary and
// carries no security weight.
func SessionMarker(salt []byte, accountID string) []byte {
	return HashPassword(salt, []byte(accountID))
}
