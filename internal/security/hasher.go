package security

import (
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/shortly-app/shortly-api/pkg/errors"
)

// HashPassword produces a salted, self-describing bcrypt hash. The cost is
// embedded in the hash string, so the cost parameter can evolve without
// invalidating stored hashes.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored hash. Comparison is
// constant-time inside bcrypt; malformed hash strings fail closed.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
