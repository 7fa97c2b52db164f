package idempotency

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"marketplace/internal/errors"
)

// Store is what the middleware needs; RedisStore is the production
// implementation, tests use an in-memory one.
type Store interface {
	Lock(ctx context.Context, key string) (bool, error)
	GetResponse(ctx context.Context, key string) (*StoredResponse, bool, error)
	SaveResponse(ctx context.Context, key string, resp StoredResponse) error
	Delete(ctx context.Context, key string) error
}

type StoredResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Headers that must not be replayed; CORS and framing belong to each response.
var ignoredHeaders = map[string]bool{
	"Access-Control-Allow-Origin":      true,
	"Access-Control-Allow-Methods":     true,
	"Access-Control-Allow-Headers":     true,
	"Access-Control-Allow-Credentials": true,
	"Access-Control-Expose-Headers":    true,
	"Date":                             true,
	"Content-Length":                   true,
	"Connection":                       true,
}

// Middleware makes mutating requests carrying an Idempotency-Key safe to
// retry: exactly one request executes, retries replay the stored response.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Atomic SETNX; only one concurrent request passes.
			acquired, err := store.Lock(ctx, key)
			if err != nil {
				// Fail closed: executing a possibly-duplicate mutation is
				// worse than refusing.
				errors.RespondError(w, r, errors.New(errors.ErrInternal, "Idempotency service unavailable", err))
				return
			}

			if !acquired {
				cachedResp, found, err := store.GetResponse(ctx, key)
				if err != nil {
					errors.RespondError(w, r, errors.New(errors.ErrInternal, "Internal cache error", err))
					return
				}

				if found && cachedResp != nil {
					for k, v := range cachedResp.Headers {
						if ignoredHeaders[k] {
							continue
						}
						for _, val := range v {
							w.Header().Add(k, val)
						}
					}
					w.Header().Set("X-Idempotency-Hit", "true")
					w.WriteHeader(cachedResp.StatusCode)
					w.Write(cachedResp.Body)
					return
				}

				// Lock held but no response yet: the original is still running.
				w.Header().Set("Retry-After", "1")
				errors.RespondError(w, r, errors.New(errors.ErrConflict, "Request is currently being processed", nil))
				return
			}

			recorder := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(recorder, r)

			// Server errors release the lock so the client can retry for real.
			if recorder.statusCode >= 500 || recorder.statusCode == http.StatusTooManyRequests {
				slog.WarnContext(ctx, "Idempotency: server error, releasing lock", "key", key)
				_ = store.Delete(context.Background(), key)
				return
			}

			// Success and client errors are final; persist for replay.
			// Detached context: the response is already on the wire.
			go func(k string, status int, headers http.Header, body []byte) {
				saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				cleanHeaders := make(http.Header)
				for hk, hv := range headers {
					if !ignoredHeaders[hk] {
						cleanHeaders[hk] = hv
					}
				}

				resp := StoredResponse{
					StatusCode: status,
					Headers:    cleanHeaders,
					Body:       body,
				}

				if err := store.SaveResponse(saveCtx, k, resp); err != nil {
					slog.ErrorContext(saveCtx, "Failed to save idempotent response", "key", k, "error", err)
				}
			}(key, recorder.statusCode, recorder.Header(), recorder.body.Bytes())
		})
	}
}

// responseRecorder copies the response as it streams to the client.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
