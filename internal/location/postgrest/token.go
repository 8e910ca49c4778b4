package postgrest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token policy.
const (
	// TokenTTL is how long a minted role token is valid.
	TokenTTL = 5 * time.Minute

	// tokenRefreshWindow is how early a cached token is replaced.
	tokenRefreshWindow = 30 * time.Second

	// DefaultRole is the database role requested for anonymous reads.
	DefaultRole = "web_anon"
)

// ErrMissingSecret is returned when a token is requested without a secret.
var ErrMissingSecret = errors.New("postgrest jwt secret is not configured")

// RoleClaims are the claims PostgREST reads to switch database role.
type RoleClaims struct {
	jwt.RegisteredClaims

	// Role is the database role the request runs as.
	Role string `json:"role"`
}

// TokenSource mints and caches short-lived HS256 role tokens.
type TokenSource struct {
	secret []byte
	role   string
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a TokenSource for role, signed with secret.
func NewTokenSource(secret, role string) *TokenSource {
	if role == "" {
		role = DefaultRole
	}
	return &TokenSource{
		secret: []byte(secret),
		role:   role,
		now:    time.Now,
	}
}

// Token returns a valid token, minting a new one when the cached token is
// within the refresh window of expiry.
func (s *TokenSource) Token() (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(tokenRefreshWindow).Before(s.expiresAt) {
		return s.token, nil
	}

	expiresAt := now.Add(TokenTTL)
	claims := RoleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: s.role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign role token: %w", err)
	}

	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}
