package valueobject

import "time"

// TokenKind distinguishes access tokens from refresh tokens. It is carried
// in the typ claim.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// IssuedToken is a signed token with its issue and expiry instants.
type IssuedToken struct {
	Value     string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL is the remaining lifetime measured from the issue instant.
func (t IssuedToken) TTL() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}

type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

func NewTokenPair(access, refresh IssuedToken) *TokenPair {
	return &TokenPair{
		Access:  access,
		Refresh: refresh,
	}
}

// TokenClaims are the verified claims of a token.
type TokenClaims struct {
	Subject   string
	Kind      TokenKind
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
