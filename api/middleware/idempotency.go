package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/swapmeet-backend/api/responses"
	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/swapmeet-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	replayTTL   = 24 * time.Hour
	checkoutTTL = 7 * 24 * time.Hour
	// a reservation outlives any sane handler; a crashed request frees the key after this
	inFlightTTL = 2 * time.Minute
)

// ReplayStore is satisfied by *pkg/redis.Client.
type ReplayStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	SetXX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// replayable names each mutating operation that requires an Idempotency-Key.
type replayable struct {
	operation string
	method    string
	prefix    string
	// suffix is empty for exact-path operations
	suffix string
	ttl    time.Duration
}

func (op replayable) matches(method, path string) bool {
	if op.method != method {
		return false
	}
	if op.suffix == "" {
		return path == op.prefix
	}
	// the segment between prefix and suffix is a single path parameter
	if !strings.HasPrefix(path, op.prefix) || !strings.HasSuffix(path, op.suffix) {
		return false
	}
	param := strings.TrimSuffix(strings.TrimPrefix(path, op.prefix), op.suffix)
	return param != "" && !strings.Contains(param, "/")
}

var replayableOperations = []replayable{
	{operation: "place-offer", method: http.MethodPost, prefix: "/api/v1/listings/", suffix: "/offers", ttl: replayTTL},
	{operation: "decide-offer", method: http.MethodPost, prefix: "/api/v1/offers/", suffix: "/status", ttl: replayTTL},
	{operation: "add-cart-item", method: http.MethodPost, prefix: "/api/v1/cart/items", ttl: replayTTL},
	{operation: "read-notification", method: http.MethodPost, prefix: "/api/v1/notifications/", suffix: "/read", ttl: replayTTL},
	{operation: "read-all-notifications", method: http.MethodPost, prefix: "/api/v1/notifications/read-all", ttl: replayTTL},
	{operation: "add-wishlist-item", method: http.MethodPost, prefix: "/api/v1/wishlist", ttl: replayTTL},
	// opens a paid gateway session; a replay must never open a second one
	{operation: "checkout", method: http.MethodPost, prefix: "/api/v1/checkout", ttl: checkoutTTL},
}

func lookupOperation(method, path string) (replayable, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, op := range replayableOperations {
		if op.matches(method, path) {
			return op, true
		}
	}
	return replayable{}, false
}

// storedResponse is either an in-flight reservation (Status 0) or a finished
// response that is replayed verbatim.
type storedResponse struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) inFlight() bool { return s.Status == 0 }

// shouldPersist keeps throttled and server-failed responses out of the store so
// the caller can retry with the same key.
func shouldPersist(status int) bool {
	return status != http.StatusTooManyRequests && status < http.StatusInternalServerError
}

// Idempotency replays the first completed response for a (user, path, key)
// triple. The key is reserved before the handler runs, so a concurrent
// duplicate is rejected instead of executing twice.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			// matched on the raw path: parent middleware runs before chi resolves the full pattern
			op, ok := lookupOperation(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), clientKey)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"idempotency_operation": op.operation})
			}

			reservation, _ := json.Marshal(storedResponse{RequestHash: hash})
			reserved, err := store.SetNX(ctx, key, string(reservation), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(ctx, logg, w, store, key, hash)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			captured := &bytes.Buffer{}
			ww.Tee(captured)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if !shouldPersist(status) {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}

			record, _ := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
			stored, err := store.SetXX(ctx, key, string(record), op.ttl)
			if err == nil && !stored {
				// reservation expired mid-request
				_, err = store.SetNX(ctx, key, string(record), op.ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store ReplayStore, key, hash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		// released between our reservation attempt and the read
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}

	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if prior.RequestHash != hash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if prior.inFlight() {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is in progress"))
		return
	}

	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(prior.Status)
	_, _ = w.Write(prior.Body)
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
