// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"pickfast/internal/core/auth"
	"pickfast/internal/core/cache"
	"pickfast/internal/core/config"
	"pickfast/internal/core/database"
	"pickfast/internal/core/logger"
	"pickfast/internal/core/mail"
	"pickfast/internal/repo"
	"pickfast/internal/service"
	"pickfast/internal/transport/http/router"
)

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Cache    *cache.Cache // nil when redis.addr is empty or unreachable
	JWT      *auth.JWTer
	Services *service.Services
}

// Open connects the database (migrating when configured) and the optional
// cache, then builds the services.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	gormLog, err := logger.ToStdLogger(log.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, fmt.Errorf("gorm logger: %w", err)
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s (%s): %w", cfg.DB.Driver, database.MaskDSN(cfg.DB.DSN), err)
	}
	if cfg.Mail.Host == "" {
		log.Warn("mail.host empty, mails are logged instead of sent")
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	a := &App{
		Cfg: cfg,
		Log: log,
		DB:  db,
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
	}

	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unreachable, group cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			a.Cache = c
			log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	a.Services = service.New(service.Deps{
		Unit:       repo.NewUnit(db),
		Log:        log,
		Cache:      a.Cache,
		CacheTTL:   time.Duration(cfg.Redis.TTLSec) * time.Second,
		Mail:       mail.New(cfg.Mail, log),
		FeedbackTo: cfg.Mail.FeedbackTo,
	}, a.JWT)
	return a, nil
}

func (a *App) RouterDeps() router.Deps {
	return router.Deps{Log: a.Log, JWT: a.JWT, Services: a.Services, Limits: a.Cfg.Limits}
}

// Close releases the cache and the database pool.
func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
