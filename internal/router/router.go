package router

import (
	"html/template"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/inkpost/internal/handler"
	"github.com/inkpost/internal/view"
)

const sessionName = "inkpost_session"

// Options controls the optional parts of the router.
type Options struct {
	SessionSecret string
	// AuthEnabled guards the write API and the slug preview with a session login.
	AuthEnabled bool
	// SecureCookies marks the session cookie Secure; set when served over TLS.
	SecureCookies bool
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(api.Logger()))
	if m := api.Metrics(); m != nil {
		r.Use(handler.Metrics(m))
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 模板随二进制嵌入
	r.SetHTMLTemplate(template.Must(view.Templates()))

	r.GET("/healthz", api.HealthCheck)

	// 前台页面
	r.GET("/", api.ShowHome)
	r.GET("/post/:slug", api.ShowPost)
	r.NoRoute(api.ShowNotFound)

	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/posts", api.ListPosts)
		apiGroup.GET("/posts/:slug", api.GetPost)

		// 写操作，开启认证时需要登录
		write := apiGroup.Group("")
		if opts.AuthEnabled {
			write.Use(handler.AuthRequired())
		}
		{
			write.POST("/posts", api.CreatePost)
			write.PUT("/posts/:slug", api.UpdatePost)
			write.DELETE("/posts/:slug", api.DeletePost)
			write.GET("/slug", api.PreviewSlug)
		}
	}

	return r
}
