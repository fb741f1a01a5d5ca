package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func TestRateLimitBlocksAfterLimitPerUser(t *testing.T) {
	store := &fakeRateStore{counts: map[string]int64{}}
	policy := RateLimitPolicy{Name: "offers", Limit: 2, Window: time.Minute}
	handler := RateLimit(policy, store, nil)(okHandler())

	bidder := uuid.NewString()
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/x/offers", nil)
		req = req.WithContext(WithUserID(req.Context(), bidder))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}

	// another bidder has their own window
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/x/offers", nil)
	req = req.WithContext(WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, store.counts, "offers:"+bidder)
}

func TestRateLimitStoreFailure(t *testing.T) {
	store := &fakeRateStore{counts: map[string]int64{}, err: errors.New("redis down")}
	handler := RateLimit(RateLimitPolicy{Name: "offers", Limit: 1, Window: time.Minute}, store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := RateLimit(RateLimitPolicy{Name: "offers"}, &fakeRateStore{counts: map[string]int64{}}, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
