package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/seoportal/sessionbind/pkg/domain"
)

// DefaultAccessTokenTTL is the access token lifetime when none is configured.
const DefaultAccessTokenTTL = 15 * time.Minute

// TokenConfig holds access token configuration.
type TokenConfig struct {
	Secret         []byte
	Issuer         string
	AccessTokenTTL time.Duration
}

// TokenService issues and validates JWT access tokens for signed-in
// identities. Tokens are stateless: possession of a valid token is the
// HTTP layer's proof of identity between requests.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service.
func NewTokenService(config TokenConfig) *TokenService {
	if config.Issuer == "" {
		config.Issuer = "seo-portal"
	}
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	return &TokenService{config: config}
}

// AccessTokenTTL returns the access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// IssueAccessToken creates a signed access token for an identity.
func (s *TokenService) IssueAccessToken(ident *domain.Identity) (string, error) {
	now := time.Now()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			Issuer:    s.config.Issuer,
			ID:        uuid.New().String(),
		},
		Email: ident.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *TokenService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
