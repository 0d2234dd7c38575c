package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/store/sqlite"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(dir, "accounts.db")
	cfg.Storage = config.Storage{Backend: backend, Path: filepath.Join(dir, "channels")}
	if backend == "sqlite" {
		cfg.Storage.Path = ""
	}
	return &cfg
}

func TestNewSeedsDefaultChannels(t *testing.T) {
	nop := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, backend := range config.Backends {
		t.Run(backend, func(t *testing.T) {
			a, err := New(ctx, testConfig(t, backend), &nop)
			require.NoError(t, err)
			t.Cleanup(a.cleanup)

			resp := httptest.NewRecorder()
			a.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
			require.Equal(t, http.StatusOK, resp.Code)

			var body struct {
				Channels []string `json:"channels"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, []string{"general", "random", "support"}, body.Channels)
		})
	}
}

func TestOpenChannelStoreSharesAccountsDatabase(t *testing.T) {
	nop := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "accounts.db")
	accounts, err := sqlite.New(path)
	require.NoError(t, err)
	defer accounts.Close()

	st, owns, err := openChannelStore(config.Storage{Backend: "sqlite"}, accounts, path, &nop)
	require.NoError(t, err)
	assert.False(t, owns)
	assert.Same(t, accounts, st)

	_, _, err = openChannelStore(config.Storage{Backend: "redis"}, accounts, path, &nop)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	nop := zerolog.Nop()
	cfg := testConfig(t, "memory")
	cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, &nop)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
}
