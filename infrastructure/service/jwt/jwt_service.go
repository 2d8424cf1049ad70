package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixora/gatekeeper/application/port/outbound"
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/valueobject"
	"github.com/fixora/gatekeeper/infrastructure/config"
)

// Reason is the internal cause of a rejected token. It is for audit logs
// only and never reaches the client.
type Reason string

const (
	ReasonExpired   Reason = "expired"
	ReasonSignature Reason = "signature"
	ReasonMalformed Reason = "malformed"
	ReasonWrongType Reason = "wrong_type"
	ReasonClaims    Reason = "claims"
)

// TokenError matches domainerror.ErrTokenInvalid. Every reason renders the
// same message.
type TokenError struct {
	Reason Reason
	cause  error
}

func (e *TokenError) Error() string {
	return domainerror.ErrTokenInvalid.Error()
}

func (e *TokenError) Unwrap() []error {
	if e.cause == nil {
		return []error{domainerror.ErrTokenInvalid}
	}
	return []error{domainerror.ErrTokenInvalid, e.cause}
}

func (e *TokenError) AuditReason() string {
	return string(e.Reason)
}

// ValidationReason returns the reason behind a TokenError, or "".
func ValidationReason(err error) Reason {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

func invalid(reason Reason, cause error) error {
	return &TokenError{Reason: reason, cause: cause}
}

type JWTService struct {
	secret      []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	enforceType bool
	now         func() time.Time

	parser        *jwt.Parser
	subjectParser *jwt.Parser
}

var _ outbound.TokenService = (*JWTService)(nil)

// NewJWTService builds an HS256 token service. The secret is fixed for the
// life of the process; changing it invalidates every outstanding token.
func NewJWTService(cfg config.JWTConfig, now func() time.Time) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, config.ErrMissingJWTSecret
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, config.ErrInvalidTokenTTL
	}
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &JWTService{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		enforceType: cfg.EnforceTokenType,
		now:         now,
		parser:      jwt.NewParser(opts...),
		subjectParser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

func (s *JWTService) IssueAccess(identityID string) (valueobject.IssuedToken, error) {
	return s.issue(identityID, valueobject.AccessToken, s.accessTTL)
}

func (s *JWTService) IssueRefresh(identityID string) (valueobject.IssuedToken, error) {
	return s.issue(identityID, valueobject.RefreshToken, s.refreshTTL)
}

func (s *JWTService) issue(identityID string, kind valueobject.TokenKind, ttl time.Duration) (valueobject.IssuedToken, error) {
	if identityID == "" {
		return valueobject.IssuedToken{}, errors.New("token subject is empty")
	}

	issuedAt := s.now().UTC().Truncate(time.Millisecond)
	expiresAt := issuedAt.Add(ttl)

	claims := &tokenClaims{
		Subject:   identityID,
		Issuer:    s.issuer,
		IssuedAt:  newNumericDate(issuedAt),
		ExpiresAt: newNumericDate(expiresAt),
		Type:      string(kind),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return valueobject.IssuedToken{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return valueobject.IssuedToken{
		Value:     signed,
		Kind:      kind,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies signature, structure, expiry and token type. A token
// is rejected once now reaches its expiry. An iat ahead of the local clock
// is accepted, since replicas do not share a clock.
func (s *JWTService) Validate(tokenString string, kind valueobject.TokenKind) (*valueobject.TokenClaims, error) {
	claims := &tokenClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil {
		return nil, s.handleValidationError(err)
	}
	if !token.Valid {
		return nil, invalid(ReasonMalformed, nil)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, invalid(ReasonClaims, nil)
	}

	switch {
	case claims.Type == "" && s.enforceType:
		return nil, invalid(ReasonWrongType, nil)
	case claims.Type != "" && claims.Type != string(kind):
		return nil, invalid(ReasonWrongType, nil)
	}

	tokenKind := valueobject.TokenKind(claims.Type)
	if tokenKind == "" {
		tokenKind = kind
	}

	return &valueobject.TokenClaims{
		Subject:   claims.Subject,
		Kind:      tokenKind,
		Issuer:    claims.Issuer,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTService) ExtractSubject(tokenString string) (string, error) {
	claims := &tokenClaims{}
	if _, err := s.subjectParser.ParseWithClaims(tokenString, claims, s.keyFunc); err != nil {
		return "", s.handleValidationError(err)
	}
	if claims.Subject == "" {
		return "", invalid(ReasonClaims, nil)
	}
	return claims.Subject, nil
}

func (s *JWTService) keyFunc(*jwt.Token) (interface{}, error) {
	return s.secret, nil
}

func (s *JWTService) handleValidationError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return invalid(ReasonExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return invalid(ReasonSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return invalid(ReasonMalformed, err)
	default:
		return invalid(ReasonClaims, err)
	}
}
