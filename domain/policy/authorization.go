package policy

import (
	domainerror "github.com/fixora/gatekeeper/domain/error"
	"github.com/fixora/gatekeeper/domain/entity"
)

// Requirement is what a protected operation declares: either a specific
// role, or any authenticated principal when Role is empty.
type Requirement struct {
	Role entity.RoleName
}

// AnyAuthenticated admits every bound principal.
var AnyAuthenticated = Requirement{}

func RequireRole(role entity.RoleName) Requirement {
	return Requirement{Role: role}
}

// Authorize evaluates req against the request principal. It returns
// ErrUnauthenticated when no principal is bound and ErrForbidden when the
// principal's role set does not contain the required role.
func Authorize(principal *entity.Principal, req Requirement) error {
	if principal == nil || principal.Identity == nil {
		return domainerror.ErrUnauthenticated
	}
	if req.Role == "" {
		return nil
	}
	if !principal.HasRole(req.Role) {
		return domainerror.ErrForbidden
	}
	return nil
}
