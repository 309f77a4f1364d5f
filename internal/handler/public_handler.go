package handler

import (
	"errors"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/service"
	"github.com/inkpost/internal/slug"
	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	textOnly  = bluemonday.StrictPolicy()
)

const (
	excerptSize         = 160
	visitorCookieName   = "ink_visitor_id"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// openGraph 为文章页提供社交分享元数据。
type openGraph struct {
	Title         string
	Description   string
	URL           string
	PublishedTime time.Time
	ModifiedTime  time.Time
}

// ShowHome renders the post list.
func (a *API) ShowHome(c *gin.Context) {
	posts, err := a.posts.List(c.Request.Context())
	if err != nil {
		// 列表失败时仍渲染空页面
		_ = c.Error(err)
		posts = nil
	}

	views := make(map[string]uint64, len(posts))
	if a.analytics != nil && len(posts) > 0 {
		ids := make([]string, 0, len(posts))
		for _, post := range posts {
			ids = append(ids, post.ID)
		}
		stats, statsErr := a.analytics.PostStatsMap(c.Request.Context(), ids)
		if statsErr != nil {
			// 统计失败不影响列表展示
			_ = c.Error(statsErr)
		}
		for id, stat := range stats {
			views[id] = stat.PageViews
		}
	}

	a.renderHTML(c, http.StatusOK, "home.html", gin.H{
		"title":       a.site.Name,
		"description": "A minimal blog with a rich text editor",
		"posts":       posts,
		"views":       views,
	})
}

// ShowPost renders a single post by slug with sanitized content.
func (a *API) ShowPost(c *gin.Context) {
	postSlug := c.Param("slug")
	// 非规范 slug 不可能存在，直接返回 404
	if !slug.Valid(postSlug) {
		a.ShowNotFound(c)
		return
	}

	post, err := a.posts.GetBySlug(c.Request.Context(), postSlug)
	if err != nil {
		if !errors.Is(err, service.ErrPostNotFound) {
			_ = c.Error(err)
		}
		a.ShowNotFound(c)
		return
	}

	var pageViews uint64
	if a.analytics != nil {
		visitorID := a.ensureVisitorID(c)
		if stats, recordErr := a.analytics.RecordPostView(c.Request.Context(), post.ID, visitorID, time.Now().UTC()); recordErr == nil {
			pageViews = stats.PageViews
			a.metrics.PostView()
		} else {
			// 不中断渲染，但记录错误
			a.log.WarnContext(c.Request.Context(), "failed to record post view", slog.String("post_id", post.ID), slog.String("error", recordErr.Error()))
		}
	}

	description := Excerpt(post.Content, excerptSize)
	a.renderHTML(c, http.StatusOK, "post.html", gin.H{
		"title":       post.Title,
		"description": description,
		"og":          a.openGraphFor(post, description),
		"post":        post,
		"content":     renderContent(post.Content),
		"pageViews":   pageViews,
	})
}

// ShowNotFound renders the 404 page.
func (a *API) ShowNotFound(c *gin.Context) {
	a.renderHTML(c, http.StatusNotFound, "not_found.html", gin.H{
		"title":       "Post Not Found",
		"description": "The requested blog post could not be found.",
	})
}

func (a *API) openGraphFor(post *db.Post, description string) openGraph {
	og := openGraph{
		Title:         post.Title,
		Description:   description,
		PublishedTime: post.CreatedAt,
		ModifiedTime:  post.UpdatedAt,
	}
	if a.site.BaseURL != "" {
		og.URL = a.site.BaseURL + "/post/" + post.Slug
	}
	return og
}

func (a *API) ensureVisitorID(c *gin.Context) string {
	if id, err := c.Cookie(visitorCookieName); err == nil && strings.TrimSpace(id) != "" {
		return id
	}

	visitorID := uuid.NewString()
	secure := c.Request.TLS != nil

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     visitorCookieName,
		Value:    visitorID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		MaxAge:   visitorCookieMaxAge,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})

	return visitorID
}

// renderContent 在输出时清洗存储的 HTML，存储层保留原始内容。
func renderContent(content string) template.HTML {
	return template.HTML(sanitizer.Sanitize(content))
}

// Excerpt strips markup from content and returns at most limit characters,
// followed by "..." when the text was cut.
func Excerpt(content string, limit int) string {
	text := html.UnescapeString(textOnly.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
