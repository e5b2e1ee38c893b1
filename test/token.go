package test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/config"
	"github.com/ipupy-tesoreria/backend/internal/identity"
	"github.com/stretchr/testify/require"
)

// BearerFor returns request headers with a signed token for the identity.
// It reads the same JWT_SECRET the backend verifies against, so the suite
// needs to set it before making requests.
func BearerFor(t *testing.T, ctx authz.Context) map[string]string {
	token, err := identity.Sign(config.JWTSecret(), ctx, time.Hour)
	require.Nil(t, err, "signing the test token failed")

	return map[string]string{"Authorization": "Bearer " + token}
}

// Admin returns headers for an admin.
func Admin(t *testing.T) map[string]string {
	return BearerFor(t, authz.Context{ActorID: uuid.New(), Role: authz.RoleAdmin})
}

// Treasurer returns headers for a national treasurer.
func Treasurer(t *testing.T) map[string]string {
	return BearerFor(t, authz.Context{ActorID: uuid.New(), Role: authz.RoleTreasurer})
}

// Pastor returns headers for the pastor of the given church.
func Pastor(t *testing.T, churchID uuid.UUID) map[string]string {
	return BearerFor(t, authz.Context{ActorID: uuid.New(), Role: authz.RolePastor, ChurchID: &churchID})
}

// FundDirector returns headers for a director assigned to the given funds.
func FundDirector(t *testing.T, fundIDs ...uuid.UUID) map[string]string {
	return BearerFor(t, authz.Context{ActorID: uuid.New(), Role: authz.RoleFundDirector, FundIDs: fundIDs})
}
