package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/cache"
	"github.com/oggyb/catmatch/internal/config"
	"github.com/oggyb/catmatch/internal/metrics"
)

// AppContext holds shared dependencies (DB, Redis, Logger, Metrics, Config).
// It is built once in main and handed to every service; nothing reaches for
// package-level handles.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, m *metrics.Metrics) *AppContext {
	if m == nil {
		m = metrics.New()
	}
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Metrics:    m,
	}
}
