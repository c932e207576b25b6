package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/surdiana/modelbank/config"
	domainerrors "github.com/surdiana/modelbank/internal/errors"
	"github.com/surdiana/modelbank/internal/model"
)

// Token types embedded in claims
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload for both token types. The jti of a refresh
// token doubles as its ledger row ID; the jti of an access token is
// the session ID stamped into audit entries.
type Claims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	FamilyID  string `json:"family_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and parses signed JWTs
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	method     jwt.SigningMethod
	now        func() time.Time
}

// NewTokenService creates a token service from config
func NewTokenService(cfg config.JWTConfig) *TokenService {
	method := jwt.GetSigningMethod(cfg.SigningAlgorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		method:     method,
		now:        time.Now,
	}
}

// AccessTTL exposes the configured access token lifetime
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL exposes the configured refresh token lifetime
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAccess signs a short-lived access token. The returned jti
// identifies the session in audit entries.
func (s *TokenService) IssueAccess(user *model.User) (string, string, error) {
	now := s.now().UTC()
	jti := uuid.NewString()

	claims := Claims{
		Username:  user.Username,
		Role:      user.Role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", "", domainerrors.WrapError(domainerrors.ErrInternal, err)
	}
	return signed, jti, nil
}

// IssueRefresh signs a refresh token whose jti matches the ledger row
// created alongside it.
func (s *TokenService) IssueRefresh(user *model.User, tokenID, familyID string) (string, error) {
	now := s.now().UTC()

	claims := Claims{
		Username:  user.Username,
		Role:      user.Role,
		TokenType: TokenTypeRefresh,
		FamilyID:  familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", domainerrors.WrapError(domainerrors.ErrInternal, err)
	}
	return signed, nil
}

// Parse validates signature, algorithm and expiry, and checks the
// embedded token type. Any failure collapses to ErrInvalidToken.
func (s *TokenService) Parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, domainerrors.ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return nil, domainerrors.ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, domainerrors.ErrInvalidToken
	}
	return claims, nil
}
