//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race builds are slow enough without a high work factor.
	return bcrypt.DefaultCost
}
