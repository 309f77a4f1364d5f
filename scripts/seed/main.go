// Command seed creates the admin account and a handful of sample posts.
//
//	go run ./scripts/seed --admin admin --password admin123
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/inkpost/internal/config"
	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/logger"
	"github.com/inkpost/internal/service"
	flag "github.com/spf13/pflag"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "配置加载失败:", err)
		os.Exit(1)
	}

	admin := flag.String("admin", cfg.AdminUserName, "admin username to create")
	password := flag.String("password", cfg.AdminPassword, "admin password")
	skipPosts := flag.Bool("no-posts", false, "only create the admin user")
	flag.Parse()

	log := logger.New(cfg.Env)

	gdb, err := db.Open(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
		Logger: log,
	})
	if err != nil {
		log.Error("数据库初始化失败", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close(gdb)

	if *admin != "" && *password != "" {
		if err := db.EnsureUser(gdb, *admin, *password); err != nil {
			log.Error("创建用户失败", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("admin user ready", slog.String("username", *admin))
	}

	if *skipPosts {
		return
	}

	posts := service.NewPostService(gdb, service.WithLogger(log))
	created, err := seedPosts(context.Background(), posts, samplePosts)
	if err != nil {
		log.Error("生成测试数据失败", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("sample posts created", slog.Int("count", created))
}
