package outbound

import "github.com/fixora/gatekeeper/domain/valueobject"

// TokenService issues and verifies signed bearer tokens. Every validation
// failure matches domainerror.ErrTokenInvalid.
type TokenService interface {
	IssueAccess(identityID string) (valueobject.IssuedToken, error)
	IssueRefresh(identityID string) (valueobject.IssuedToken, error)
	Validate(token string, kind valueobject.TokenKind) (*valueobject.TokenClaims, error)
	// ExtractSubject verifies the signature but not expiry. For logging
	// and for callers that already validated the token.
	ExtractSubject(token string) (string, error)
}
