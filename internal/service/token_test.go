package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/surdiana/modelbank/config"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:           "test-secret-test-secret-test-secret-1234",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		SigningAlgorithm: "HS256",
	}
}

func testUser() *model.User {
	return &model.User{
		ID:       "9f1b2a1c-0000-4000-8000-000000000001",
		Username: "alice",
		Role:     model.RoleEditor,
		IsActive: true,
	}
}

func TestTokenIssueAndParseAccess(t *testing.T) {
	svc := NewTokenService(testJWTConfig())

	signed, jti, err := svc.IssueAccess(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := svc.Parse(signed, TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, testUser().ID, claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, model.RoleEditor, claims.Role)
	require.Equal(t, jti, claims.ID)
}

func TestTokenTypeEnforced(t *testing.T) {
	svc := NewTokenService(testJWTConfig())

	access, _, err := svc.IssueAccess(testUser())
	require.NoError(t, err)
	_, err = svc.Parse(access, TokenTypeRefresh)
	require.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	refresh, err := svc.IssueRefresh(testUser(), "token-id", "family-id")
	require.NoError(t, err)
	_, err = svc.Parse(refresh, TokenTypeAccess)
	require.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestTokenRefreshCarriesLedgerIDs(t *testing.T) {
	svc := NewTokenService(testJWTConfig())

	signed, err := svc.IssueRefresh(testUser(), "token-id", "family-id")
	require.NoError(t, err)

	claims, err := svc.Parse(signed, TokenTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, "token-id", claims.ID)
	require.Equal(t, "family-id", claims.FamilyID)
}

func TestTokenExpiryRejected(t *testing.T) {
	svc := NewTokenService(testJWTConfig())

	issued := time.Now()
	svc.now = func() time.Time { return issued }
	signed, _, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, err = svc.Parse(signed, TokenTypeAccess)
	require.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	svc := NewTokenService(testJWTConfig())
	signed, _, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	other := testJWTConfig()
	other.Secret = "another-secret-another-secret-another-00"
	_, err = NewTokenService(other).Parse(signed, TokenTypeAccess)
	require.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestTokenGarbageRejected(t *testing.T) {
	svc := NewTokenService(testJWTConfig())
	_, err := svc.Parse("not.a.jwt", TokenTypeAccess)
	require.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}
