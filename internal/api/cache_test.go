package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestClusterCacheRoundTrip(t *testing.T) {
	mr, rc := newRedis(t)
	c := clusterCache{rc: rc, ttl: time.Minute}
	ctx := context.Background()

	_, ok := c.get(ctx, "clusters:g1:k")
	assert.False(t, ok)

	want := []Cluster{
		{Lat: 40, Lon: -100, Count: 12, Size: 30, Title: "12 places in this area"},
		{Lat: 31, Lon: -92, Count: 1, Size: 27, Title: "Lone Motel", Subtitle: "318-555-0147", Country: "USA"},
	}
	c.set(ctx, "clusters:g1:k", want)
	assert.Equal(t, time.Minute, mr.TTL("clusters:g1:k"))

	got, ok := c.get(ctx, "clusters:g1:k")
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	_, ok = c.get(ctx, "clusters:g1:k")
	assert.False(t, ok)
}

func TestClusterCacheDefaultTTLAndCorruptValue(t *testing.T) {
	mr, rc := newRedis(t)
	c := clusterCache{rc: rc}
	ctx := context.Background()

	c.set(ctx, "k", []Cluster{{Count: 1}})
	assert.Equal(t, DefaultCacheTTL, mr.TTL("k"))

	require.NoError(t, mr.Set("k", "{not json"))
	_, ok := c.get(ctx, "k")
	assert.False(t, ok)
}

func TestClustersServedFromRedisUntilReload(t *testing.T) {
	mr, rc := newRedis(t)
	s, ts := newTestServer(t)
	s.Redis = rc
	q := viewport("-110", "30", "-90", "45", "1024")

	first := getClusters(t, ts, q)
	key := cacheKey(first.Generation, viewportQuery{West: -110, South: 30, East: -90, North: 45, Width: 1024})
	require.True(t, mr.Exists(key))

	// a cached entry is returned as stored
	marker := []Cluster{{Lat: 1, Lon: 2, Count: 7, Title: "cached"}}
	b, err := json.Marshal(marker)
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, string(b)))
	assert.Equal(t, marker, getClusters(t, ts, q).Clusters)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/reload", nil)
	req.Header.Set("x-admin-token", "secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	after := getClusters(t, ts, q)
	assert.Greater(t, after.Generation, first.Generation)
	assert.Equal(t, first.Clusters, after.Clusters)

	gens := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "clusters:g") {
			gens++
		}
	}
	assert.Equal(t, 2, gens)
}
