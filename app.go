package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"nbme-dashboard-go/access"
	"nbme-dashboard-go/apiclient"
	"nbme-dashboard-go/config"
	"nbme-dashboard-go/dashboard"
	"nbme-dashboard-go/db"
	"nbme-dashboard-go/metrics"
)

// app is the wired dashboard shared by every subcommand.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	service  *dashboard.Service
	redis    *redis.Client
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	var cache db.CacheStore = db.NewMemoryStore()
	if cfg.Cache.RedisAddr != "" {
		client, err := db.InitializeRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		a.redis = client
		cache = db.NewRedisStore(client, cfg.Cache.TTL, logger)
		logger.Info("fetch cache backed by redis", zap.String("addr", cfg.Cache.RedisAddr), zap.Duration("ttl", cfg.Cache.TTL))
	} else {
		logger.Info("fetch cache kept in memory")
	}

	client := apiclient.New(cfg.API.BaseURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.API.RequestTimeout}),
		apiclient.WithCache(cache),
		apiclient.WithMetrics(m),
		apiclient.WithLogger(logger),
	)
	resolver := access.NewResolver(cfg.Access.MasterKey, cfg.Access.Schools, cfg.Access.SchoolKeys)
	a.service = dashboard.NewService(client, resolver, m, logger)
	return a, nil
}

func (a *app) Close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		logger.Warn("redis close error", zap.Error(err))
	}
}
