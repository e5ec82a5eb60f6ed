package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func fixedClock(tb *TokenBucket, at *time.Time) {
	tb.now = func() time.Time { return *at }
	tb.lastSec = at.Unix()
}

func TestTokenBucketRefillsEachSecond(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tb := NewTokenBucket(2)
	fixedClock(tb, &now)

	assert.True(t, tb.allow())
	assert.True(t, tb.allow())
	assert.False(t, tb.allow())

	now = now.Add(time.Second)
	assert.True(t, tb.allow())
}

func serve(h http.Handler, remote string) int {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/clusters", nil)
	req.RemoteAddr = remote
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestLimitGlobal(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tb := NewTokenBucket(1)
	fixedClock(tb, &now)
	h := Limit(okHandler, tb, 0)
	assert.Equal(t, http.StatusNoContent, serve(h, "192.0.2.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "192.0.2.2:1"))
}

func TestLimitPerIP(t *testing.T) {
	h := Limit(okHandler, nil, 1)
	assert.Equal(t, http.StatusNoContent, serve(h, "192.0.2.1:1"))
	assert.Equal(t, http.StatusNoContent, serve(h, "192.0.2.2:1"))
}

func TestPerClientBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pc := &perClient{qps: 1, maxClients: 2, buckets: make(map[string]*TokenBucket), now: func() time.Time { return now }}
	assert.True(t, pc.allow("a"))
	assert.False(t, pc.allow("a"))
	assert.True(t, pc.allow("b"))
	// table full: reset, "a" gets a fresh bucket
	assert.True(t, pc.allow("c"))
	assert.True(t, pc.allow("a"))
	now = now.Add(time.Second)
	assert.True(t, pc.allow("c"))
}

func TestWrapDisabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	h := Wrap(okHandler)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(h, "192.0.2.1:1"))
	}
}
