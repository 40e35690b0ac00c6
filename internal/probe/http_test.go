package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticResolver(url string) AddressFunc {
	return func(ctx context.Context, target string) (string, error) {
		return url, nil
	}
}

func TestHTTPProberHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPProber(staticResolver(srv.URL + "/health"))
	result := p.Probe(context.Background(), "api")

	assert.Equal(t, Healthy, result.Outcome)
	assert.Empty(t, result.Message)
	assert.WithinDuration(t, time.Now(), result.ObservedAt, 5*time.Second)
}

func TestHTTPProberUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProber(staticResolver(srv.URL))
	result := p.Probe(context.Background(), "api")

	assert.Equal(t, Unhealthy, result.Outcome)
	assert.Contains(t, result.Message, "503")
	assert.Contains(t, result.Message, "model not loaded")
}

func TestHTTPProberUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	p := NewHTTPProber(staticResolver(url))
	result := p.Probe(context.Background(), "api")

	assert.Equal(t, Unreachable, result.Outcome)
	assert.NotEmpty(t, result.Message)
}

func TestHTTPProberTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := NewHTTPProber(staticResolver(srv.URL))
	result := p.Probe(ctx, "api")

	assert.Equal(t, Unreachable, result.Outcome)
}

func TestHTTPProberResolveFailure(t *testing.T) {
	p := NewHTTPProber(func(ctx context.Context, target string) (string, error) {
		return "", assert.AnError
	})
	result := p.Probe(context.Background(), "api")

	require.Equal(t, Unreachable, result.Outcome)
	assert.Contains(t, result.Message, "failed to resolve probe address")
}
