package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pickfast/internal/app"
	"pickfast/internal/core/config"
	"pickfast/internal/core/logger"
	"pickfast/internal/core/server"
	"pickfast/internal/domain"
	"pickfast/internal/transport/http/router"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("CONFIG_PATH"), "config file")
	promote := pflag.String("promote", "", "grant the staff role to this email and exit")
	demote := pflag.String("demote", "", "revoke the staff role from this email and exit")
	pflag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad(*configPath)
	gin.SetMode(cfg.App.Mode)

	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	a, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if *promote != "" || *demote != "" {
		code := setRole(a, *promote, *demote)
		a.Close()
		cleanup()
		os.Exit(code)
	}

	r := router.NewAdminEngine(a.RouterDeps())
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	host := cfg.App.Admin.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	baseURL := "http://" + host + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil {
			log.Fatal("admin api start failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	if err := server.Shutdown(srv, 10*time.Second); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("admin api stopped")
}

func setRole(a *app.App, promote, demote string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	email, role := promote, domain.RoleStaff
	if demote != "" {
		email, role = demote, domain.RoleUser
	}
	u, err := a.Services.Users.SetRole(ctx, email, role)
	if err != nil {
		a.Log.Error("set role failed", zap.String("email", email), zap.Error(err))
		return 1
	}
	a.Log.Info("role updated", zap.String("user", u.ID), zap.String("email", u.Email), zap.String("role", u.Role))
	return 0
}
