package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret-key", time.Second)
}

func TestSnapshots(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/user-1/metrics", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"platform": "twitter", "followers_count": 1200, "posts_count": 5, "engagement_rate": 2.5},
			{"platform": "instagram", "followers_count": 800, "posts_count": 7},
			{"platform": "friendster", "followers_count": 3}
		]`))
	})

	snaps, err := client.Snapshots(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "twitter", snaps[0].Platform)
	assert.Equal(t, 1200.0, snaps[0].FollowersCount)
	assert.Equal(t, 2.5, snaps[0].EngagementRate)
	assert.Equal(t, 7.0, snaps[1].PostsCount)
}

func TestSnapshots_UnknownUserHasNoMetrics(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	snaps, err := client.Snapshots(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSnapshots_Errors(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := client.Snapshots(context.Background(), "u")
	assert.ErrorContains(t, err, "status 502")

	client = newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	})
	_, err = client.Snapshots(context.Background(), "u")
	assert.ErrorContains(t, err, "decode")

	client = newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client.httpClient.Timeout = 20 * time.Millisecond
	_, err = client.Snapshots(context.Background(), "u")
	assert.Error(t, err)
}
