package server

import "net/http"

const (
	RoleOperator  = "operator"
	RoleRequester = "requester"
)

type Principal struct {
	ID   string
	Role string
}

// IdentityProvider resolves who is calling. The engine only uses it for
// authorization gating; identity mechanics live behind this interface.
type IdentityProvider interface {
	CurrentPrincipal(r *http.Request) Principal
}

// basicIdentity treats a valid operator basic-auth pair as the operator and
// falls back to the X-Owner-ID header for requesters.
type basicIdentity struct {
	user string
	pass string
}

func (i basicIdentity) CurrentPrincipal(r *http.Request) Principal {
	if u, p, ok := r.BasicAuth(); ok && u == i.user && p == i.pass {
		return Principal{ID: u, Role: RoleOperator}
	}
	if owner := r.Header.Get("X-Owner-ID"); owner != "" {
		return Principal{ID: owner, Role: RoleRequester}
	}
	return Principal{}
}
