package handler

import (
	"net/http"
	"time"

	"vomprater-server/internal/access"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Stories    StoryService
	Pages      PageService
	Meta       MetaService
	Access     *access.Service
	Moderators *access.ModeratorVerifier
	Logger     *zap.Logger

	AllowedOrigins []string

	// RedisClient backs the verify-password rate limiter; nil falls back to
	// the in-memory store (single-instance deployments and tests).
	RedisClient      *redis.Client
	VerifyRateLimit  uint
	VerifyRateWindow time.Duration

	// Production switches gin to release mode and enables /metrics.
	Production bool
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(gin.Recovery())
	router.Use(ZapLoggingMiddleware(deps.Logger.Named("HTTP")))

	corsConfig := cors.DefaultConfig()
	if len(deps.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = deps.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	stories := NewStoryHandler(deps.Stories, deps.Logger)
	pages := NewPageHandler(deps.Pages, deps.Logger)
	meta := NewMetaHandler(deps.Meta, deps.Logger)

	router.Use(ActorMiddleware(deps.Access, deps.Moderators, deps.Logger))

	// Public surface.
	router.GET("/stories", stories.list)
	router.GET("/stories/:id", stories.getByID)
	router.GET("/stories/by-slug/:slug", stories.getBySlug)
	router.GET("/draft-stories/:editorKey", stories.getByEditorKey)
	router.POST("/stories", stories.create)
	router.POST("/stories/verify-password", verifyRateLimiter(deps), stories.verifyPassword)
	router.GET("/stories/:id/pages", pages.list)
	router.GET("/stories/:id/keywords", meta.listStoryKeywords)
	router.GET("/keywords", meta.listKeywords)
	router.GET("/authors", meta.listAuthors)

	// Author or moderator surface.
	authed := router.Group("", RequireActor())
	authed.PUT("/stories/:id", stories.update)
	authed.POST("/stories/:id/submit", stories.submit)
	authed.DELETE("/stories/:id", stories.delete)
	authed.POST("/stories/:id/pages", pages.create)
	authed.PUT("/stories/:id/pages/:pageId", pages.update)
	authed.DELETE("/stories/:id/pages/:pageId", pages.delete)

	// Moderator-only surface.
	moderation := router.Group("", RequireModerator())
	moderation.POST("/stories/:id/reject", stories.reject)
	moderation.POST("/stories/:id/publish", stories.publish)

	return router
}

// verifyRateLimiter throttles password guessing per client IP.
func verifyRateLimiter(deps RouterDeps) gin.HandlerFunc {
	limit := deps.VerifyRateLimit
	if limit == 0 {
		limit = 5
	}
	window := deps.VerifyRateWindow
	if window == 0 {
		window = time.Minute
	}

	var store ratelimit.Store
	if deps.RedisClient != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: deps.RedisClient,
			Rate:        window,
			Limit:       limit,
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  window,
			Limit: limit,
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			deps.Logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests, try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
