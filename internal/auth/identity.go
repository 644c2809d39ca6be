// Package auth models the authenticated identity injected by the edge proxy.
// Session establishment (password, Google, the legacy OIDC provider) happens
// upstream; by the time a request reaches this service the proxy has set
// X-User-Id, X-Auth-Provider and X-User-Role headers.
package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderOIDC   = "oidc"
)

// Identity is a tagged union over the credential paths that can establish a
// session. Exactly one branch is set.
type Identity struct {
	Local  *LocalIdentity
	Google *GoogleIdentity
	OIDC   *OIDCIdentity

	Admin bool
}

type LocalIdentity struct {
	UserID int64
}

type GoogleIdentity struct {
	UserID int64
}

// OIDCIdentity covers the legacy provider, which identifies users by the
// token subject rather than an internal id.
type OIDCIdentity struct {
	Subject string
}

// SubjectResolver maps a legacy OIDC subject to an internal user id.
type SubjectResolver interface {
	UserIDBySubject(ctx context.Context, subject string) (int64, error)
}

// ResolveUserID collapses the union into the internal user id. This is the
// only place that branches on the credential path.
func ResolveUserID(ctx context.Context, id Identity, resolver SubjectResolver) (int64, error) {
	switch {
	case id.Local != nil:
		return id.Local.UserID, nil
	case id.Google != nil:
		return id.Google.UserID, nil
	case id.OIDC != nil:
		if resolver == nil {
			return 0, apperr.Forbidden("legacy identity not supported")
		}
		return resolver.UserIDBySubject(ctx, id.OIDC.Subject)
	default:
		return 0, apperr.Forbidden("no identity")
	}
}

// FromRequest parses the proxy headers into an Identity. Returns a forbidden
// error when the headers are absent or malformed.
func FromRequest(r *http.Request) (Identity, error) {
	provider := r.Header.Get("X-Auth-Provider")
	admin := r.Header.Get("X-User-Role") == "admin"

	switch provider {
	case ProviderLocal, ProviderGoogle, "":
		raw := r.Header.Get("X-User-Id")
		if raw == "" {
			return Identity{}, apperr.Forbidden("missing identity headers")
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return Identity{}, apperr.Forbidden("malformed user id header")
		}
		if provider == ProviderGoogle {
			return Identity{Google: &GoogleIdentity{UserID: userID}, Admin: admin}, nil
		}
		return Identity{Local: &LocalIdentity{UserID: userID}, Admin: admin}, nil
	case ProviderOIDC:
		subject := r.Header.Get("X-User-Subject")
		if subject == "" {
			return Identity{}, apperr.Forbidden("missing oidc subject header")
		}
		return Identity{OIDC: &OIDCIdentity{Subject: subject}, Admin: admin}, nil
	default:
		return Identity{}, apperr.Forbidden("unknown auth provider")
	}
}
