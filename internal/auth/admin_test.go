package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/solwinner/internal/apperror"
)

// bcrypt.MinCost keeps these tests fast.
func newTestAdminGate(t *testing.T, secret string) *AdminGate {
	t.Helper()
	g, err := NewAdminGate(secret, bcrypt.MinCost)
	require.NoError(t, err)
	return g
}

func TestAdminGate_Check(t *testing.T) {
	g := newTestAdminGate(t, "abc123")

	tests := []struct {
		name      string
		presented string
		wantOK    bool
	}{
		{name: "exact match", presented: "abc123", wantOK: true},
		{name: "wrong", presented: "wrong", wantOK: false},
		{name: "empty", presented: "", wantOK: false},
		{name: "prefix", presented: "abc12", wantOK: false},
		{name: "suffix added", presented: "abc1234", wantOK: false},
		{name: "case differs", presented: "ABC123", wantOK: false},
		{name: "too long", presented: strings.Repeat("a", 100), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(tt.presented)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperror.ErrUnauthorizedAdmin), "err = %v", err)
		})
	}
}

func TestAdminGate_Disabled(t *testing.T) {
	g := newTestAdminGate(t, "")

	assert.False(t, g.Enabled())
	assert.True(t, errors.Is(g.Check(""), apperror.ErrUnauthorizedAdmin))
	assert.True(t, errors.Is(g.Check("anything"), apperror.ErrUnauthorizedAdmin))
}

func TestNewAdminGate_SecretTooLong(t *testing.T) {
	_, err := NewAdminGate(strings.Repeat("s", 73), bcrypt.MinCost)
	assert.Error(t, err)
}

func TestNewAdminGate_DefaultCost(t *testing.T) {
	g, err := NewAdminGate("abc123", DefaultAdminCost)
	require.NoError(t, err)

	cost, err := bcrypt.Cost(g.hash)
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
	assert.NoError(t, g.Check("abc123"))
}
