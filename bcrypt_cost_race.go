//go:build race

package hospital

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	return bcrypt.MinCost
}
