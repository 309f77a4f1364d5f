package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkpost/internal/slug"
	"github.com/spf13/viper"
)

const (
	SlugPolicyReject = "reject"
	SlugPolicySuffix = "suffix"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	Env                 string
	ListenAddr          string
	Port                string
	GinMode             string
	DatabaseDriver      string
	DatabasePath        string
	DatabaseDSN         string
	SessionSecret       string
	AdminUserName       string
	AdminPassword       string
	SlugCollisionPolicy string
	SlugMaxSuffix       int
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	CacheTTL            time.Duration
	MetricsEnabled      bool
	SiteName            string
	SiteBaseURL         string
}

// AdminAuthEnabled reports whether write endpoints require a logged in admin.
func (c AppConfig) AdminAuthEnabled() bool {
	return c.AdminUserName != "" && c.AdminPassword != ""
}

// CacheEnabled reports whether a Redis address was configured.
func (c AppConfig) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// Load 从环境变量（以及可选的 config.yaml）读取应用配置，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("app_env", "prod")
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", "inkpost.db")
	v.SetDefault("session_secret", "inkpost-dev-secret")
	v.SetDefault("slug_collision_policy", SlugPolicyReject)
	v.SetDefault("slug_max_suffix", 50)
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("site_name", "Blog Website")
	v.SetDefault("site_base_url", "http://localhost:8080")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	port := trimmed(v, "port")
	listenAddr := trimmed(v, "listen_addr")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	policy := strings.ToLower(trimmed(v, "slug_collision_policy"))
	switch policy {
	case "":
		policy = SlugPolicyReject
	case SlugPolicyReject, SlugPolicySuffix:
	default:
		return AppConfig{}, fmt.Errorf("invalid SLUG_COLLISION_POLICY %q (want %s or %s)", policy, SlugPolicyReject, SlugPolicySuffix)
	}

	maxSuffix := v.GetInt("slug_max_suffix")
	if maxSuffix < 2 || maxSuffix > slug.MaxSuffix {
		return AppConfig{}, fmt.Errorf("invalid SLUG_MAX_SUFFIX %d (want 2-%d)", maxSuffix, slug.MaxSuffix)
	}

	driver := strings.ToLower(trimmed(v, "database_driver"))
	switch driver {
	case "sqlite", "mysql", "postgres":
	default:
		return AppConfig{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	return AppConfig{
		Env:                 strings.ToLower(trimmed(v, "app_env")),
		ListenAddr:          listenAddr,
		Port:                port,
		GinMode:             trimmed(v, "gin_mode"),
		DatabaseDriver:      driver,
		DatabasePath:        trimmed(v, "database_path"),
		DatabaseDSN:         trimmed(v, "database_dsn"),
		SessionSecret:       trimmed(v, "session_secret"),
		AdminUserName:       trimmed(v, "admin_username"),
		AdminPassword:       trimmed(v, "admin_password"),
		SlugCollisionPolicy: policy,
		SlugMaxSuffix:       maxSuffix,
		RedisAddr:           trimmed(v, "redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		CacheTTL:            v.GetDuration("cache_ttl"),
		MetricsEnabled:      v.GetBool("metrics_enabled"),
		SiteName:            trimmed(v, "site_name"),
		SiteBaseURL:         strings.TrimRight(trimmed(v, "site_base_url"), "/"),
	}, nil
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}
