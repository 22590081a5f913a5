package framework

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)

	_, err = NewClient("/just/a/path")
	assert.Error(t, err)

	c, err := NewClient("http://127.0.0.1:8080")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestHandlesShareOneUnderlyingClient(t *testing.T) {
	a, err := NewClient("http://127.0.0.1:8080")
	require.NoError(t, err)

	b, err := NewClient("http://127.0.0.1:9090/other")
	require.NoError(t, err)

	// Distinct handles, identical resilient client underneath.
	assert.NotSame(t, a, b)
	assert.Same(t, a.rc, b.rc)
	assert.Same(t, a.rc, sharedRetryClient())
}

func TestGetRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := c.Get(ctx, "/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostSendsBodyAndContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"hello":"world"}`, string(body))

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), "/items", "application/json", []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGetJoinsPathToBaseURL(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/api/v1")
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "grains/42")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/grains/42", gotPath.Load())
}

func TestWaitForEndpoint(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, WaitForEndpoint(ctx, c, "/healthz"))
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForEndpointHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err = WaitForEndpoint(ctx, c, "/healthz")
	assert.Error(t, err)
}
