package auth

import (
	"crypto/subtle"
	"net/http"
	"sync/atomic"

	"marketplace/internal/errors"
)

// Authorizer decides whether a request may perform a mutating operation.
// Implementations are injected per deployment, so swapping the shared-token
// gate for OIDC (or disabling the gate entirely) is a config change.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// TokenHeader is where callers present the admin credential. The query
// parameter fallback exists for the frontend's delete links.
const (
	TokenHeader = "X-Admin-Token"
	TokenParam  = "token"
)

// StaticTokenAuthorizer gates requests on a single shared secret.
// The secret lives in an atomic.Value so it can be rotated without restart.
type StaticTokenAuthorizer struct {
	secret atomic.Value // string
}

func NewStaticTokenAuthorizer(secret string) *StaticTokenAuthorizer {
	a := &StaticTokenAuthorizer{}
	a.secret.Store(secret)
	return a
}

// Rotate swaps the secret. In-flight requests see either the old or the new
// value, never a torn read.
func (a *StaticTokenAuthorizer) Rotate(secret string) {
	a.secret.Store(secret)
}

func (a *StaticTokenAuthorizer) Authorize(r *http.Request) error {
	presented := r.Header.Get(TokenHeader)
	if presented == "" {
		presented = r.URL.Query().Get(TokenParam)
	}
	if presented == "" {
		return errors.New(errors.ErrForbidden, "Admin token required", nil)
	}

	want := a.secret.Load().(string)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(want)) != 1 {
		return errors.New(errors.ErrForbidden, "Invalid admin token", nil)
	}
	return nil
}

// AllowAll disables the gate. Used by deployments that sit behind their own
// perimeter, and by tests.
type AllowAll struct{}

func (AllowAll) Authorize(*http.Request) error { return nil }

// Middleware runs the Authorizer before the wrapped handler. Rejections never
// reach the listing service.
func Middleware(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := a.Authorize(r); err != nil {
				errors.RespondError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
