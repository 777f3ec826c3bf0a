package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext credential for storage. A cost outside
// bcrypt's supported range falls back to the library default rather than
// erroring, so a misconfigured AUTH_BCRYPT_COST cannot break registration.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a plaintext credential against its stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
