package httpapi

import (
	"context"
	"net/http"

	"github.com/PaqueMex/EnvioBox/internal/auth"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyAdmin
)

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKeyUserID).(int64)
	return id
}

func isAdminFrom(ctx context.Context) bool {
	admin, _ := ctx.Value(ctxKeyAdmin).(bool)
	return admin
}

// withIdentity resolves the proxy headers into an internal user id and
// stashes it in the request context. Requests without a valid identity get
// a 401 before any handler runs.
func (a *API) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.FromRequest(r)
		if err != nil {
			respondUnauthorized(w)
			return
		}
		userID, err := auth.ResolveUserID(r.Context(), id, a.resolver)
		if err != nil {
			respondUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyAdmin, id.Admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdminFrom(r.Context()) {
			respondWithError(w, errForbiddenAdmin)
			return
		}
		next.ServeHTTP(w, r)
	})
}
