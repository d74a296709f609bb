package router

import (
	"context"
	"log/slog"
	"net/http"

	"blogtalk/internal/config"
	"blogtalk/internal/handlers"
	"blogtalk/internal/httperr"
	"blogtalk/internal/middleware"
	"blogtalk/internal/services"
	"blogtalk/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Comments      *services.CommentService
	Notifications *services.NotificationService
	Users         store.IdentityStore
	DB            Pinger // nil skips the readiness check
	Logger        *slog.Logger
}

// New builds the engine with the middleware stack and all routes.
func New(cfg *config.Config, d Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) { httperr.Abort(c, http.StatusNotFound, "not_found", "not found") })
	r.NoMethod(func(c *gin.Context) {
		httperr.Abort(c, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Use(
		middleware.RequestID(),
		middleware.Logging(d.Logger),
		middleware.Recover(),
		middleware.Metrics(),
		middleware.Timeout(cfg.Timeouts.Request),
		sessions.Sessions(cfg.Session.Name, cookie.NewStore([]byte(cfg.Session.Secret))),
	)

	RegisterRoutes(r, cfg, d)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	commentHandler := handlers.NewCommentHandler(d.Comments)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)

	// 探活与监控
	r.GET("/livez", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/healthz", func(c *gin.Context) {
		if d.DB != nil {
			if err := d.DB.Ping(c.Request.Context()); err != nil {
				httperr.Abort(c, http.StatusServiceUnavailable, "unavailable", "database unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.LoadCaller(d.Users, cfg.Auth.JWTSecret))

	// 评论 (Comments): reads are public, writes need a caller
	comments := api.Group("/blogs/:slug/posts/:post/comments")
	{
		comments.GET("", commentHandler.List)
		comments.GET("/:number", commentHandler.Get)

		authorized := comments.Group("")
		authorized.Use(middleware.AuthRequired())
		authorized.POST("", commentHandler.Create)
		authorized.PUT("/:number", commentHandler.Update)
		authorized.DELETE("/:number", commentHandler.Delete)
		authorized.POST("/:number/pin", commentHandler.Pin)
		authorized.POST("/:number/unpin", commentHandler.Unpin)
		authorized.POST("/:number/like", commentHandler.Like)
		authorized.POST("/:number/dislike", commentHandler.Dislike)
		authorized.POST("/:number/like_by_author", commentHandler.LikeByAuthor)
	}

	// 通知 (Notifications)
	notifications := api.Group("/notifications")
	notifications.Use(middleware.AuthRequired())
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/read-all", notificationHandler.ReadAll)
		notifications.POST("/:id/read", notificationHandler.Read)
		notifications.POST("/:id/hide", notificationHandler.Hide)
	}
}
