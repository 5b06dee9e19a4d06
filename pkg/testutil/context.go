package testutil

import (
	"net/http"

	id "pitchfund/pkg/domain"
	"pitchfund/pkg/requestcontext"
)

// AsRole stamps a resolved role onto the request context, simulating what the
// role-resolution middleware does for a request carrying a valid token.
func AsRole(req *http.Request, role id.Role) *http.Request {
	return req.WithContext(requestcontext.WithRole(req.Context(), role))
}

// AsIdentity stamps a role and an identity ID onto the request context. This
// is the state self-scope reads see.
func AsIdentity(req *http.Request, role id.Role, identityID id.IdentityID) *http.Request {
	ctx := requestcontext.WithRole(req.Context(), role)
	ctx = requestcontext.WithIdentityID(ctx, identityID)
	return req.WithContext(ctx)
}
