package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/solwinner/internal/apperror"
)

// DefaultAdminCost is the bcrypt work factor for the admin secret hash.
// Every /admin-login attempt pays one comparison at this cost, whether or
// not the secret is right, and nothing rate limits the endpoint. Cost 10 is
// tens of milliseconds of CPU per attempt; raise ADMIN_BCRYPT_COST only
// behind a proxy that limits request rates.
const DefaultAdminCost = 10

// maxSecretBytes is bcrypt's input limit. Longer inputs would be truncated
// silently, so they are rejected instead.
const maxSecretBytes = 72

// AdminGate checks the shared admin secret presented to /admin-login.
//
// WHY BCRYPT FOR A SHARED SECRET?
// The configured secret is hashed once at startup and every presented value
// goes through bcrypt.CompareHashAndPassword, which compares in constant
// time. A plain == would leak through response timing how many leading
// bytes of a guess were right.
type AdminGate struct {
	hash []byte // nil when admin login is disabled
}

// NewAdminGate hashes secret with the given bcrypt cost.
//
// An empty secret disables admin login: every Check fails. Otherwise an
// unset ADMIN_SECRET would match a request that sends no secret at all.
func NewAdminGate(secret string, cost int) (*AdminGate, error) {
	if secret == "" {
		return &AdminGate{}, nil
	}
	if len(secret) > maxSecretBytes {
		return nil, fmt.Errorf("auth: admin secret must be %d bytes or fewer", maxSecretBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hashing admin secret: %w", err)
	}
	return &AdminGate{hash: hash}, nil
}

// Enabled reports whether an admin secret is configured.
func (g *AdminGate) Enabled() bool {
	return g.hash != nil
}

// Check returns nil if presented equals the configured secret, and an error
// matching apperror.ErrUnauthorizedAdmin otherwise.
//
// Empty or oversized values are rejected before bcrypt runs; anything else
// costs one full hash comparison.
func (g *AdminGate) Check(presented string) error {
	if !g.Enabled() || presented == "" || len(presented) > maxSecretBytes {
		return apperror.UnauthorizedAdmin()
	}

	err := bcrypt.CompareHashAndPassword(g.hash, []byte(presented))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperror.UnauthorizedAdmin()
		}
		return fmt.Errorf("auth: comparing admin secret: %w", err)
	}
	return nil
}
