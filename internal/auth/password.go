package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrAdminDisabled is returned when neither a password nor a hash is configured.
var ErrAdminDisabled = errors.New("admin login disabled")

// AdminCredentials holds the single admin principal allowed on /admin routes.
type AdminCredentials struct {
	email string
	hash  []byte
}

// NewAdminCredentials prefers a precomputed bcrypt hash; a plaintext password
// is hashed once with cost, falling back to bcrypt.DefaultCost when cost is
// out of range.
func NewAdminCredentials(email, hash, plain string, cost int) (*AdminCredentials, error) {
	c := &AdminCredentials{email: normalizeEmail(email)}
	switch {
	case hash != "":
		c.hash = []byte(hash)
	case plain != "":
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return nil, err
		}
		c.hash = hashed
	}
	return c, nil
}

// Email is the normalised admin address.
func (c *AdminCredentials) Email() string { return c.email }

// Verify reports whether email and password match the admin principal.
func (c *AdminCredentials) Verify(email, password string) error {
	if len(c.hash) == 0 {
		return ErrAdminDisabled
	}
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(c.email)) == 1
	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil || !emailOK {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
