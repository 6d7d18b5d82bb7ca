package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const Header = "X-Foldnote-Token"

// Middleware rejects requests whose token header does not match. A bcrypt
// hash takes precedence over the plain token when both are set.
func Middleware(token, hash string) fiber.Handler {
	check := func(got string) bool {
		return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
	}
	if hash != "" {
		check = func(got string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte(got)) == nil
		}
	}

	return func(c *fiber.Ctx) error {
		if got := c.Get(Header); got == "" || !check(got) {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.Next()
	}
}

func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
