package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kysee/zkcharity/config"
	"github.com/kysee/zkcharity/zk-charity/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRunStartsAndStops(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a full circuit setup")
	}
	dir := t.TempDir()
	cfg := &config.Config{
		AppEnv:           "test",
		Port:             "0",
		LogLevel:         zerolog.Disabled,
		DataDir:          filepath.Join(dir, "data"),
		KeysDir:          filepath.Join(dir, "keys"),
		ProofBackend:     types.Groth16,
		DustCapRatio:     5,
		DashboardRefresh: time.Minute,
		WalletName:       "lace",
		RateLimitPerMin:  30,
		AllowedOrigins:   []string{"*"},
		HTTPReadTimeout:  time.Second,
		HTTPWriteTimeout: time.Second,
		HTTPIdleTimeout:  time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, run(ctx, cfg, zerolog.Nop()))

	_, err := os.Stat(filepath.Join(cfg.KeysDir, "groth16", "donation.pk"))
	require.NoError(t, err)
}
