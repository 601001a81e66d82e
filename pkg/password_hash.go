package pkg

import "golang.org/x/crypto/bcrypt"

// bcryptCost is deliberately above the library default, login is rare
// and the extra hashing time is acceptable
const bcryptCost = 14

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return BytesToString(bytes), err
}

// CheckPasswordHash returns false for a wrong password and for a
// malformed hash alike, it never panics on bad input
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
