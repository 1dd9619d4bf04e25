// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/Corphon/RevidClone/internal/config"
	"github.com/Corphon/RevidClone/internal/di"
	"github.com/Corphon/RevidClone/internal/services"
	"github.com/Corphon/RevidClone/internal/utils"
	"github.com/gin-gonic/gin"
)

// 每个客户端 IP 每分钟允许的 API 请求数
const (
	apiRateLimit  = 120
	apiRateWindow = time.Minute
)

// SetupRouter 从全局容器获取服务并配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	container := di.GetContainer()

	cfg, err := di.Resolve[*config.Config](container, di.ServiceConfig)
	if err != nil {
		return nil, fmt.Errorf("config not initialized: %w", err)
	}
	projects, err := di.Resolve[*services.ProjectService](container, di.ServiceProjects)
	if err != nil {
		return nil, fmt.Errorf("project service not initialized: %w", err)
	}
	exports, err := di.Resolve[*services.ExportService](container, di.ServiceExports)
	if err != nil {
		return nil, fmt.Errorf("export service not initialized: %w", err)
	}
	locks, err := di.Resolve[*services.LockManager](container, di.ServiceLocks)
	if err != nil {
		return nil, fmt.Errorf("lock manager not initialized: %w", err)
	}
	events, err := di.Resolve[*services.EventService](container, di.ServiceEvents)
	if err != nil {
		return nil, fmt.Errorf("event service not initialized: %w", err)
	}
	metrics, err := di.Resolve[*utils.PipelineMetrics](container, di.ServiceMetrics)
	if err != nil {
		return nil, fmt.Errorf("metrics not initialized: %w", err)
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewRouter(NewHandler(projects, exports, locks, events, metrics)), nil
}

// NewRouter 注册全部路由
func NewRouter(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		handler.Response.InternalError(c, "internal server error", fmt.Sprint(recovered))
		c.Abort()
	}))
	r.Use(RequestIDMiddleware())
	r.Use(MetricsMiddleware(handler.Metrics))
	r.Use(corsMiddleware())

	r.GET("/health", handler.Health)

	// WebSocket 支持
	r.GET("/ws/projects/:id", handler.ProjectWebSocket)

	api := r.Group("/api")
	api.Use(RateLimitByIP(NewRateLimiter(apiRateLimit, apiRateWindow), handler.Response))
	{
		api.GET("/metrics", handler.GetMetrics)

		projectsGroup := api.Group("/projects")
		{
			projectsGroup.GET("", handler.ListProjects)
			projectsGroup.POST("", handler.CreateProject)
			projectsGroup.GET("/:id", handler.GetProject)
			projectsGroup.POST("/:id/script", handler.GenerateScript)
			projectsGroup.POST("/:id/storyboard", handler.DesignStoryboard)
			projectsGroup.POST("/:id/render", handler.RenderPreview)
			projectsGroup.GET("/:id/preview", handler.GetPreview)
			projectsGroup.GET("/:id/export", handler.ExportProject)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		handler.Response.NotFound(c, "route not found", c.Request.URL.Path)
	})

	return r
}
