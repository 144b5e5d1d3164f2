package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 200_000
	MinIterations     = 100_000
	SaltSize          = 16
	KeySize           = 32
)

// dummySalt feeds Dummy so unknown accounts cost one full derivation.
var dummySalt = []byte("authguard-dummy!")

// Verifier derives and compares PBKDF2-HMAC-SHA256 password digests.
type Verifier struct {
	iterations int
}

func NewVerifier(iterations int) *Verifier {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Verifier{iterations: iterations}
}

func (v *Verifier) Iterations() int {
	return v.iterations
}

func (v *Verifier) Hash(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, v.iterations, KeySize, sha256.New)
}

// Verify recomputes the digest and compares it in constant time.
func (v *Verifier) Verify(password string, salt, expected []byte) bool {
	digest := v.Hash(password, salt)
	return subtle.ConstantTimeCompare(digest, expected) == 1
}

// Dummy performs a derivation whose result is discarded.
func (v *Verifier) Dummy(password string) {
	_ = v.Hash(password, dummySalt)
}

func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
