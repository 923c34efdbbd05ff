package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mgdadali/249-subsite/config"
	"github.com/Mgdadali/249-subsite/tracking"
)

func TestOpenTables_SQLite(t *testing.T) {
	ctx := context.Background()
	tables, closeTables, err := openTables(ctx, config.Config{Backend: config.BackendSQLite, DBPath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	defer closeTables()

	require.NoError(t, tracking.LoadScenario(ctx, tables, "demo", "admin", "pw"))
	svc := tracking.NewService(tables, tracking.NewMemoryCache(time.Minute), zap.NewNop())
	status, err := svc.Track(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, "Amina Yusuf", status.Client.Name)
}

func TestOpenTables_UnknownBackend(t *testing.T) {
	_, _, err := openTables(context.Background(), config.Config{Backend: "csv"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenCache_Memory(t *testing.T) {
	cache, closeCache, err := openCache(context.Background(), config.Config{Cache: config.CacheMemory, CacheTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer closeCache()

	mem, ok := cache.(*tracking.MemoryCache)
	require.True(t, ok)
	assert.Equal(t, time.Minute, mem.TTL())
}

func TestBindFlags_OnlyChangedFlagsOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TRACKER_PORT", "7000")
	t.Setenv("TRACKER_BACKEND", "sheets")
	require.NoError(t, rootCmd.PersistentFlags().Set("backend", "sqlite"))
	t.Cleanup(func() {
		f := rootCmd.PersistentFlags().Lookup("backend")
		f.Value.Set("")
		f.Changed = false
	})

	v := config.New("")
	require.NoError(t, bindFlags(v, rootCmd))
	got, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "7000", got.Port)
	assert.Equal(t, config.BackendSQLite, got.Backend)
}
