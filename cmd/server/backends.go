package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Mgdadali/249-subsite/cache/redis"
	"github.com/Mgdadali/249-subsite/config"
	"github.com/Mgdadali/249-subsite/store/sheets"
	"github.com/Mgdadali/249-subsite/store/sqlite"
	"github.com/Mgdadali/249-subsite/tracking"
)

// openTables opens the configured table backend. The returned func
// releases it.
func openTables(ctx context.Context, cfg config.Config, logger *zap.Logger) (tracking.TableAccessor, func(), error) {
	switch cfg.Backend {
	case config.BackendSheets:
		store, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsJSON: cfg.Credentials,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("spreadsheet check failed: %w", err)
		}
		logger.Info("using google sheets backend", zap.String("spreadsheet_id", cfg.SpreadsheetID))
		return store, func() {}, nil

	case config.BackendSQLite:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info("using sqlite backend", zap.String("db", cfg.DBPath))
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close database", zap.Error(err))
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openCache opens the configured snapshot cache.
func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (tracking.Cache, func(), error) {
	switch cfg.Cache {
	case config.CacheRedis:
		c, err := redis.New(ctx, cfg.RedisAddr, cfg.CacheTTL, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("close redis", zap.Error(err))
			}
		}, nil

	case config.CacheMemory:
		return tracking.NewMemoryCache(cfg.CacheTTL), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache %q", cfg.Cache)
	}
}
