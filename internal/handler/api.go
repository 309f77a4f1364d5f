package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inkpost/internal/logger"
	"github.com/inkpost/internal/metrics"
	"github.com/inkpost/internal/service"
	"gorm.io/gorm"
)

const defaultSiteName = "Blog Website"

// SiteInfo is rendered into every public page.
type SiteInfo struct {
	Name string
	// BaseURL is the absolute origin used for og:url. Optional.
	BaseURL string
}

// Options carries the optional collaborators of API. Nil services are built
// from the database handle.
type Options struct {
	Posts     service.Posts
	Analytics *service.AnalyticsService
	Auth      *service.AuthService
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Site      SiteInfo
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	posts     service.Posts
	analytics *service.AnalyticsService
	auth      *service.AuthService
	metrics   *metrics.Metrics
	log       *slog.Logger
	site      SiteInfo
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	posts := opts.Posts
	if posts == nil {
		posts = service.NewPostService(gdb, service.WithLogger(log))
	}
	analytics := opts.Analytics
	if analytics == nil {
		analytics = service.NewAnalyticsService(gdb)
	}
	auth := opts.Auth
	if auth == nil {
		auth = service.NewAuthService(gdb)
	}

	site := opts.Site
	site.Name = strings.TrimSpace(site.Name)
	if site.Name == "" {
		site.Name = defaultSiteName
	}
	site.BaseURL = strings.TrimRight(strings.TrimSpace(site.BaseURL), "/")

	return &API{
		db:        gdb,
		posts:     posts,
		analytics: analytics,
		auth:      auth,
		metrics:   opts.Metrics,
		log:       log,
		site:      site,
	}
}

// Metrics returns the collector set, nil when metrics are disabled.
func (a *API) Metrics() *metrics.Metrics {
	return a.metrics
}

// Logger returns the request logger.
func (a *API) Logger() *slog.Logger {
	return a.log
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}
	if _, exists := payload["site"]; !exists {
		payload["site"] = a.site
	}
	if _, exists := payload["title"]; !exists {
		payload["title"] = a.site.Name
	}

	c.HTML(status, template, payload)
}
