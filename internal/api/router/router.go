package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/api/handler"
	"study-tracker/backend/internal/api/middleware"
	"study-tracker/backend/pkg/jwt"
	"study-tracker/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎；rdb 为 nil 时限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/health", cfg.Metrics.Path))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	limit := middleware.RateLimit(rdb, cfg.Import.RateLimit, cfg.Import.RateWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 学期
		terms := v1.Group("/terms")
		{
			terms.GET("", h.Term.ListTerms)
			terms.POST("", h.Term.CreateTerm)
		}

		// 批量导入边界操作
		imports := v1.Group("/imports")
		{
			imports.GET("/fields", h.Import.FieldOptions)
			imports.POST("/parse", limit, h.Import.Parse)
			imports.POST("/preview", h.Import.Preview)
			imports.POST("/missing-modules", h.Import.CreateMissingModules)
			imports.POST("/ingest", limit, h.Import.Ingest)
		}

		// 导入向导
		sessions := v1.Group("/import-sessions")
		{
			sessions.POST("", h.Wizard.OpenSession)
			sessions.GET("/:id", h.Wizard.GetSession)
			sessions.DELETE("/:id", h.Wizard.CloseSession)
			sessions.POST("/:id/upload", limit, h.Wizard.Upload)
			sessions.POST("/:id/auto-map", h.Wizard.AutoMap)
			sessions.PUT("/:id/mapping", h.Wizard.SetMapping)
			sessions.PUT("/:id/term", h.Wizard.SelectTerm)
			sessions.POST("/:id/term", h.Wizard.CreateTerm)
			sessions.PUT("/:id/options", h.Wizard.SetOptions)
			sessions.POST("/:id/next", limit, h.Wizard.Next) // 第 4 步前进即提交
			sessions.POST("/:id/back", h.Wizard.Back)
			sessions.POST("/:id/commit", limit, h.Wizard.Commit)
		}
	}

	return r
}
