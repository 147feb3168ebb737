package downstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// Send always targets http://localhost:<port>/, so these tests spin up a
// listener bound to an ephemeral port and exercise it directly rather
// than mocking the network layer.
func testPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{})
	outcome, err := c.Send(context.Background(), testPort(t, srv), "abc123abc123abc123abc123")
	require.NoError(t, err)
	require.Equal(t, Success, outcome.Kind)
	require.Equal(t, 200, outcome.StatusCode)
}

func TestSend_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{})
	outcome, err := c.Send(context.Background(), testPort(t, srv), "abc123abc123abc123abc123")
	require.NoError(t, err)
	require.Equal(t, RateLimited, outcome.Kind)
}

func TestSend_FailureOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{})
	outcome, err := c.Send(context.Background(), testPort(t, srv), "abc123abc123abc123abc123")
	require.NoError(t, err)
	require.Equal(t, Failure, outcome.Kind)
}

func TestSend_ConnectionRefused(t *testing.T) {
	c := New(Config{})
	// Port 1 should not have anything listening in the test sandbox.
	outcome, err := c.Send(context.Background(), 1, "abc123abc123abc123abc123")
	require.NoError(t, err)
	require.Equal(t, Failure, outcome.Kind)
	require.Equal(t, 0, outcome.StatusCode)
}
