package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/internal/source"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/cache"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/config"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

type staticProvider struct{ name string }

func (p staticProvider) Name() string { return p.name }

func (p staticProvider) Fetch(context.Context, string, models.Timeframe, int) ([]models.Candle, error) {
	return []models.Candle{{Timestamp: time.Now(), Close: 100}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := cache.NewMemoryStore(cache.WithCleanupInterval(time.Hour))
	t.Cleanup(func() { store.Close() })

	cfg := config.DataSourceConfig{PrimarySource: "binance", CacheTTL: time.Minute}
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Retry.BackoffMultiplier = 2.0

	src, err := source.New(cfg, []repository.CandleProvider{staticProvider{name: "binance"}}, store, logger.Nop(), nil)
	require.NoError(t, err)
	return New(src, logger.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]source.SourceStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Contains(t, status, "binance")
	assert.True(t, status["binance"].Enabled)
}

func TestResetEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status/binance/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status/unknown/reset", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
