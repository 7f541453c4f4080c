package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"BTCUSD","price":45000}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100})

	var out struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "BTCUSD", out.Symbol)
	assert.Equal(t, 45000.0, out.Price)
}

func TestDoReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 100})

	err := c.GetJSON(context.Background(), srv.URL, &struct{}{})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestDoHonorsCancelledContext(t *testing.T) {
	c := NewClient(ClientOptions{Timeout: time.Second, RequestsPerSec: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.GetJSON(ctx, "http://127.0.0.1:0/", &struct{}{})
	assert.Error(t, err)
}
