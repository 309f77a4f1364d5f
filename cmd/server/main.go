package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/internal/cache"
	"github.com/inkpost/internal/config"
	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/handler"
	"github.com/inkpost/internal/logger"
	"github.com/inkpost/internal/metrics"
	"github.com/inkpost/internal/router"
	"github.com/inkpost/internal/service"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	loaded := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	if len(loaded) > 0 {
		log.Debug("loaded env files", slog.Any("files", loaded))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig, log *slog.Logger) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// 初始化数据库
	gdb, err := db.Open(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Warn("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if cfg.AdminAuthEnabled() {
		if err := db.EnsureUser(gdb, cfg.AdminUserName, cfg.AdminPassword); err != nil {
			return err
		}
	} else {
		log.Warn("ADMIN_USERNAME/ADMIN_PASSWORD not set, write API is unauthenticated")
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var posts service.Posts = service.NewPostService(gdb,
		service.WithSlugPolicy(service.SlugPolicy(cfg.SlugCollisionPolicy), cfg.SlugMaxSuffix),
		service.WithLogger(log),
		service.WithMetrics(m),
	)

	if cfg.CacheEnabled() {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, log)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		posts = service.NewCachedPostService(posts, redisCache, log, m)
	}

	api := handler.NewAPI(gdb, handler.Options{
		Posts:   posts,
		Metrics: m,
		Logger:  log,
		Site:    handler.SiteInfo{Name: cfg.SiteName, BaseURL: cfg.SiteBaseURL},
	})

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: router.SetupRouter(api, router.Options{
			SessionSecret: cfg.SessionSecret,
			AuthEnabled:   cfg.AdminAuthEnabled(),
			SecureCookies: strings.HasPrefix(cfg.SiteBaseURL, "https://"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			slog.String("address", srv.Addr),
			slog.String("slug_policy", cfg.SlugCollisionPolicy),
			slog.String("database", cfg.DatabaseDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed")
	return nil
}
