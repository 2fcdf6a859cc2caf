package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost puts a single hash in the tens-of-milliseconds range on
// commodity hardware.
const bcryptCost = 10

// PasswordHasher abstracts the credential hashing algorithm.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext password.
	Hash(password string) (string, error)

	// Check compares a plaintext password with a hash to see if they match.
	Check(password, hash string) bool
}

// BcryptHasher hashes passwords with bcrypt. Each call salts independently,
// so hashing the same password twice yields different digests.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcryptCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Check reports whether password matches the stored digest. A mismatch is a
// normal false result, never an error. Comparison is constant-time.
func (h *BcryptHasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
