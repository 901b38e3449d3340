package profilecard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/api/influencer/42/mini-profile", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "max-age=300")
		_, _ = w.Write([]byte(`{"id":42,"username":"chartwizard","display_name":"Chart Wizard",
			"platform":"youtube","accuracy":61.5,"total_calls":40,"confidence_score":72,"category":"crypto"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	p, err := c.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "chartwizard", p.Username)
	require.Equal(t, 61.5, p.Accuracy)
	require.Equal(t, 72, p.Confidence)

	// Second fetch is served from the caching transport.
	_, err = c.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestGetProfileErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "influencer not found"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), 999)
	require.Error(t, err)
	require.Contains(t, err.Error(), "influencer not found")
}

func TestNewRequiresOrigin(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
