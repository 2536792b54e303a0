package auth

import (
	"context"
	"net/http"

	"github.com/sakif/ailogo/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// unauthorizedBody follows the API envelope. Application outcomes are always
// HTTP 200; the code field carries the result.
const unauthorizedBody = `{"code":401,"message":"no auth, please sign-in","data":null}`

// RequireAuth reads the "token" cookie, validates it and stores the identity
// in the request context. Requests without a valid token get the 401
// envelope and never reach the handler.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(unauthorizedBody))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller, or false for an
// anonymous request.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.Subject != ""
}

func extractIdentity(r *http.Request, tokens *TokenService) (model.Identity, error) {
	cookie, err := r.Cookie("token")
	if err != nil {
		return model.Identity{}, err
	}
	return tokens.Validate(cookie.Value)
}
